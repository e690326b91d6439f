package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/model"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Create inserts a new profile row.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	const q = `
INSERT INTO profiles (id, username, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, p.ID, p.Username, p.PwdHash, p.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a profile by ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	const q = `
SELECT id, username, pwd_hash, salt_auth, created_at
FROM profiles WHERE id=$1`
	return r.getOne(ctx, q, id)
}

// GetByUsername selects a profile by username.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	const q = `
SELECT id, username, pwd_hash, salt_auth, created_at
FROM profiles WHERE username=$1`
	return r.getOne(ctx, q, username)
}

func (r *ProfileRepo) getOne(ctx context.Context, q string, arg any) (*model.Profile, error) {
	var p model.Profile
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(&p.ID, &p.Username, &p.PwdHash, &p.SaltAuth, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
