package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/mapper"
)

// BookmarkRepo implements BookmarkRepository using PostgreSQL.
type BookmarkRepo struct{ db *DB }

// NewBookmarkRepo constructs a bookmark repository.
func NewBookmarkRepo(db *DB) *BookmarkRepo { return &BookmarkRepo{db: db} }

// List returns the user's bookmarks, newest first.
func (r *BookmarkRepo) List(ctx context.Context, userID uuid.UUID) ([]mapper.BookmarkRow, error) {
	const q = `
SELECT id, user_id, recipe_id, created_at
FROM bookmarks WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mapper.BookmarkRow{}
	for rows.Next() {
		var b mapper.BookmarkRow
		if err := rows.Scan(&b.ID, &b.UserID, &b.RecipeID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Exists reports whether the user bookmarked the recipe.
func (r *BookmarkRepo) Exists(ctx context.Context, userID, recipeID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = $1 AND recipe_id = $2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, userID, recipeID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Add inserts a bookmark; a duplicate is absorbed by the unique constraint.
func (r *BookmarkRepo) Add(ctx context.Context, userID, recipeID uuid.UUID) error {
	const q = `
INSERT INTO bookmarks (id, user_id, recipe_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, recipe_id) DO NOTHING`
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, q, id, userID, recipeID)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Remove deletes a bookmark if present.
func (r *BookmarkRepo) Remove(ctx context.Context, userID, recipeID uuid.UUID) error {
	const q = `DELETE FROM bookmarks WHERE user_id = $1 AND recipe_id = $2`
	_, err := r.db.Pool.Exec(ctx, q, userID, recipeID)
	return err
}
