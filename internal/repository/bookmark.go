package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/mapper"
)

// BookmarkRepository stores bookmarks. (user, recipe) is unique.
type BookmarkRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]mapper.BookmarkRow, error)
	Exists(ctx context.Context, userID, recipeID uuid.UUID) (bool, error)
	// Add is a no-op when the bookmark already exists.
	Add(ctx context.Context, userID, recipeID uuid.UUID) error
	// Remove is a no-op when the bookmark does not exist.
	Remove(ctx context.Context, userID, recipeID uuid.UUID) error
}
