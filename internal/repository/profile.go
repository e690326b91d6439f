package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/model"
)

// ProfileRepository provides access to identity provider accounts.
type ProfileRepository interface {
	// Create inserts a new profile.
	Create(ctx context.Context, p *model.Profile) error
	// GetByID loads a profile by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// GetByUsername loads a profile by username.
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
}
