package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitalsync-auth/internal/domain"
)

// CodeRepository persiste codigos de verificacion, uno vivo por (usuario, canal).
type CodeRepository interface {
	Upsert(ctx context.Context, code domain.VerificationCode) error
	Get(ctx context.Context, userID string, channel domain.Channel) (domain.VerificationCode, error)
	IncrementAttempts(ctx context.Context, userID string, channel domain.Channel) (int, error)
	Delete(ctx context.Context, userID string, channel domain.Channel) error
}

// PgCodeRepository implementa CodeRepository usando pgxpool.
type PgCodeRepository struct {
	pool *pgxpool.Pool
}

func NewPgCodeRepository(pool *pgxpool.Pool) *PgCodeRepository {
	return &PgCodeRepository{pool: pool}
}

// Upsert reemplaza atomicamente el codigo previo del mismo (usuario, canal).
func (r *PgCodeRepository) Upsert(ctx context.Context, code domain.VerificationCode) error {
	const query = `
		INSERT INTO verification_codes (user_id, channel, code_hash, attempts, issued_at, expires_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (user_id, channel) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, attempts = 0,
		    issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query,
		code.UserID,
		string(code.Channel),
		code.CodeHash,
		code.IssuedAt,
		code.ExpiresAt,
	)
	return err
}

func (r *PgCodeRepository) Get(ctx context.Context, userID string, channel domain.Channel) (domain.VerificationCode, error) {
	const query = `
		SELECT user_id, channel, code_hash, attempts, issued_at, expires_at
		FROM verification_codes
		WHERE user_id = $1 AND channel = $2
	`
	var c domain.VerificationCode
	err := r.pool.QueryRow(ctx, query, userID, string(channel)).Scan(
		&c.UserID,
		&c.Channel,
		&c.CodeHash,
		&c.Attempts,
		&c.IssuedAt,
		&c.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VerificationCode{}, err
	}
	return c, err
}

func (r *PgCodeRepository) IncrementAttempts(ctx context.Context, userID string, channel domain.Channel) (int, error) {
	const query = `
		UPDATE verification_codes SET attempts = attempts + 1
		WHERE user_id = $1 AND channel = $2
		RETURNING attempts
	`
	var attempts int
	err := r.pool.QueryRow(ctx, query, userID, string(channel)).Scan(&attempts)
	return attempts, err
}

func (r *PgCodeRepository) Delete(ctx context.Context, userID string, channel domain.Channel) error {
	const query = `DELETE FROM verification_codes WHERE user_id = $1 AND channel = $2`
	_, err := r.pool.Exec(ctx, query, userID, string(channel))
	return err
}
