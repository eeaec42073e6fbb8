package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitalsync-auth/internal/domain"
)

// DetailRepository persiste atributos de perfil dependientes del usuario.
type DetailRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.UserDetail, error)
	Upsert(ctx context.Context, detail domain.UserDetail) error
}

// PgDetailRepository implementa DetailRepository usando pgxpool.
type PgDetailRepository struct {
	pool *pgxpool.Pool
}

func NewPgDetailRepository(pool *pgxpool.Pool) *PgDetailRepository {
	return &PgDetailRepository{pool: pool}
}

func (r *PgDetailRepository) GetByUserID(ctx context.Context, userID string) (domain.UserDetail, error) {
	const query = `
		SELECT detail_id, user_id, dob, COALESCE(height_cm, 0), COALESCE(waist_cm, 0),
		       COALESCE(weight_kg, 0), COALESCE(gender, ''), COALESCE(allergen, ''), COALESCE(disease, '')
		FROM user_details
		WHERE user_id = $1
	`
	var d domain.UserDetail
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&d.DetailID,
		&d.UserID,
		&d.DOB,
		&d.HeightCm,
		&d.WaistCm,
		&d.WeightKg,
		&d.Gender,
		&d.Allergen,
		&d.Disease,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserDetail{}, err
	}
	return d, err
}

func (r *PgDetailRepository) Upsert(ctx context.Context, detail domain.UserDetail) error {
	const query = `
		INSERT INTO user_details (detail_id, user_id, dob, height_cm, waist_cm, weight_kg, gender, allergen, disease)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET dob = EXCLUDED.dob, height_cm = EXCLUDED.height_cm, waist_cm = EXCLUDED.waist_cm,
		    weight_kg = EXCLUDED.weight_kg, gender = EXCLUDED.gender,
		    allergen = EXCLUDED.allergen, disease = EXCLUDED.disease
	`
	_, err := r.pool.Exec(ctx, query,
		detail.DetailID,
		detail.UserID,
		detail.DOB,
		detail.HeightCm,
		detail.WaistCm,
		detail.WeightKg,
		detail.Gender,
		detail.Allergen,
		detail.Disease,
	)
	return err
}
