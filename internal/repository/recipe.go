// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/model"
)

// RecipeRepository reads and writes rows of the recipes table. Mutations are
// scoped by owner: a row owned by someone else behaves as absent.
type RecipeRepository interface {
	// ListPublic returns public recipes, newest first.
	ListPublic(ctx context.Context) ([]mapper.Row, error)
	// Get loads a recipe by id regardless of visibility.
	Get(ctx context.Context, id uuid.UUID) (*mapper.Row, error)
	// Search returns public recipes matching every filter, newest first.
	// viewer is required only when filters ask for bookmarked recipes.
	Search(ctx context.Context, f model.RecipeFilters, viewer uuid.NullUUID) ([]mapper.Row, error)
	// Create inserts a row and returns it as stored.
	Create(ctx context.Context, row mapper.Row) (*mapper.Row, error)
	// Update writes the supplied columns of an owned recipe.
	Update(ctx context.Context, id, ownerID uuid.UUID, payload map[string]any) (*mapper.Row, error)
	// Delete removes an owned recipe and returns its image URL.
	Delete(ctx context.Context, id, ownerID uuid.UUID) (string, error)
	// ListOwned returns every recipe of the owner, newest first.
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]mapper.Row, error)
}
