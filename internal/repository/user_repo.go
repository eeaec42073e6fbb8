package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitalsync-auth/internal/domain"
)

// ErrDuplicate indica violacion de una restriccion de unicidad.
var ErrDuplicate = errors.New("duplicate row")

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error
	SetEmailVerified(ctx context.Context, id string) error
	SetPhoneVerified(ctx context.Context, id string) error
	UpsertFederated(ctx context.Context, user domain.User) (domain.User, bool, error)
	Delete(ctx context.Context, id string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(password_hash, ''),
		COALESCE(phone_number, ''), email_verified, phone_verified, COALESCE(google_uid, ''),
		COALESCE(access_token, ''), COALESCE(refresh_token, ''), created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, email, password_hash, phone_number, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error {
	const query = `
		UPDATE users SET access_token = $2, refresh_token = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, accessToken, refreshToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) SetEmailVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "email_verified")
}

func (r *PgUserRepository) SetPhoneVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "phone_verified")
}

// setFlag solo transiciona false -> true; nunca revierte una verificacion.
func (r *PgUserRepository) setFlag(ctx context.Context, id, column string) error {
	query := `UPDATE users SET ` + column + ` = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) UpsertFederated(ctx context.Context, user domain.User) (domain.User, bool, error) {
	query := `
		INSERT INTO users (id, name, phone_number, google_uid, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (google_uid) DO UPDATE
		SET name = EXCLUDED.name, phone_number = EXCLUDED.phone_number
		RETURNING ` + userColumns + `, (xmax = 0)`
	var (
		u       domain.User
		created bool
	)
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.PhoneNumber,
		user.GoogleUID,
		user.CreatedAt,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.PhoneNumber,
		&u.EmailVerified,
		&u.PhoneVerified,
		&u.GoogleUID,
		&u.AccessToken,
		&u.RefreshToken,
		&u.CreatedAt,
		&created,
	)
	if err != nil {
		return domain.User{}, false, err
	}
	return u, created, nil
}

// Delete elimina detalles dependientes y la fila de usuario en una transaccion.
func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_details WHERE user_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *PgUserRepository) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.PhoneNumber,
		&u.EmailVerified,
		&u.PhoneVerified,
		&u.GoogleUID,
		&u.AccessToken,
		&u.RefreshToken,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
