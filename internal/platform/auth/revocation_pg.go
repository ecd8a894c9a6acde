package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bhis/bhis/internal/platform/db"
)

type revocationRepoPG struct {
	pool *pgxpool.Pool
}

func NewRevocationRepoPG(pool *pgxpool.Pool) RevocationRepository {
	return &revocationRepoPG{pool: pool}
}

func (r *revocationRepoPG) Insert(ctx context.Context, t RevokedToken) error {
	var userID *string
	if t.UserID != "" {
		userID = &t.UserID
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO revoked_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`,
		t.JTI, userID, t.ExpiresAt)
	return err
}

func (r *revocationRepoPG) ListActive(ctx context.Context, now time.Time) ([]RevokedToken, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT jti, COALESCE(user_id::text, ''), expires_at
		FROM revoked_tokens WHERE expires_at > $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevokedToken
	for rows.Next() {
		var t RevokedToken
		if err := rows.Scan(&t.JTI, &t.UserID, &t.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *revocationRepoPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
