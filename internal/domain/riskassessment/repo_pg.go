package riskassessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhis/bhis/internal/platform/db"
)

type assessmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &assessmentRepoPG{pool: pool}
}

const assessmentCols = `id, patient_id, form, created_by, created_at, updated_at`

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	form, err := json.Marshal(a.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	a.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO risk_assessments (id, patient_id, form, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, form, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := scanAssessment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM risk_assessments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *assessmentRepoPG) Update(ctx context.Context, a *Assessment) error {
	form, err := json.Marshal(a.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE risk_assessments SET form = $2, patient_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, form, a.PatientID,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM risk_assessments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+assessmentCols+` FROM risk_assessments
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []*Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	var a Assessment
	var form []byte
	if err := row.Scan(&a.ID, &a.PatientID, &form, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(form, &a.Form); err != nil {
		return nil, fmt.Errorf("decode form %s: %w", a.ID, err)
	}
	return &a, nil
}
