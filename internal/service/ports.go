package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/model"
)

// BookmarkService is what the transports need from bookmarks.Service.
type BookmarkService interface {
	Toggle(ctx context.Context, recipeID uuid.UUID) (bool, error)
	Add(ctx context.Context, recipeID uuid.UUID) error
	Remove(ctx context.Context, recipeID uuid.UUID) error
	IsBookmarked(ctx context.Context, recipeID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]model.BookmarkRef, error)
	Subscribe(ctx context.Context) (<-chan []model.BookmarkRef, func(), error)
}

// ImageUploader stores a recipe photo and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, recipeID string, src []byte) (string, error)
}

// RecipeImporter builds an unsaved draft from a recipe page.
type RecipeImporter interface {
	Import(ctx context.Context, url string) (model.Recipe, error)
}

var _ ImageUploader = (*ImageService)(nil)
