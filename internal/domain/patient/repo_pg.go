package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhis/bhis/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, full_name, date_of_birth, gender, civil_status, contact_number,
	emergency_contact_name, emergency_contact_number, emergency_contact_relationship,
	address, email, occupation, blood_type, family_id, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (
			id, full_name, date_of_birth, gender, civil_status, contact_number,
			emergency_contact_name, emergency_contact_number, emergency_contact_relationship,
			address, email, occupation, blood_type, family_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		p.ID, p.FullName, p.DateOfBirth.Time, p.Gender, p.CivilStatus, p.ContactNumber,
		p.EmergencyContactName, p.EmergencyContactNumber, p.EmergencyContactRelationship,
		p.Address, p.Email, p.Occupation, p.BloodType, p.FamilyID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patients SET
			full_name=$2, date_of_birth=$3, gender=$4, civil_status=$5, contact_number=$6,
			emergency_contact_name=$7, emergency_contact_number=$8, emergency_contact_relationship=$9,
			address=$10, email=$11, occupation=$12, blood_type=$13, family_id=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.DateOfBirth.Time, p.Gender, p.CivilStatus, p.ContactNumber,
		p.EmergencyContactName, p.EmergencyContactNumber, p.EmergencyContactRelationship,
		p.Address, p.Email, p.Occupation, p.BloodType, p.FamilyID,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	conn := db.Conn(ctx, r.pool)
	pattern := "%" + query + "%"

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE full_name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+patientCols+` FROM patients
		WHERE full_name ILIKE $1 ORDER BY lower(full_name), id LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) AddVisit(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, purpose) VALUES ($1, $2, $3)
		RETURNING created_at`, v.ID, v.PatientID, v.Purpose).Scan(&v.CreatedAt)
	if err != nil && db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *patientRepoPG) ListVisits(ctx context.Context, patientID uuid.UUID) ([]Visit, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, purpose, created_at FROM visits
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Purpose, &v.CreatedAt); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var dob time.Time
	err := row.Scan(&p.ID, &p.FullName, &dob, &p.Gender, &p.CivilStatus, &p.ContactNumber,
		&p.EmergencyContactName, &p.EmergencyContactNumber, &p.EmergencyContactRelationship,
		&p.Address, &p.Email, &p.Occupation, &p.BloodType, &p.FamilyID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DateOfBirth = Date{dob}
	return &p, nil
}
