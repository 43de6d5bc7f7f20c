package repositories

import (
	"context"

	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/services"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

func (r *IdentityRepo) CreateIdentity(ctx context.Context, email, passwordHash string) (*models.Identity, error) {
	var i models.Identity
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at
	`, email, passwordHash).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

func (r *IdentityRepo) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var i models.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM auth_identities WHERE lower(email) = lower($1)
	`, email).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

func (r *IdentityRepo) GetIdentityByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var i models.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM auth_identities WHERE id = $1
	`, id).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

func (r *IdentityRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auth_identities SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *IdentityRepo) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_identities WHERE id = $1`, id)
	return translate(err)
}
