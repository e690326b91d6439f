// Package bookmarks implements bookmark toggling over interchangeable
// stores and fans updated bookmark lists out to subscribers.
package bookmarks

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/repository"
	"github.com/and161185/recipebox/internal/schema"
)

// Store holds one user's bookmarks. Implementations: RepoStore (database,
// user from context), FileStore (local file, no session) and rpc.Client.
type Store interface {
	List(ctx context.Context) ([]model.BookmarkRef, error)
	Contains(ctx context.Context, recipeID uuid.UUID) (bool, error)
	Add(ctx context.Context, recipeID uuid.UUID) error
	Remove(ctx context.Context, recipeID uuid.UUID) error
}

// RepoStore is the database-backed Store for the authenticated user.
type RepoStore struct {
	repo repository.BookmarkRepository
}

var _ Store = (*RepoStore)(nil)

// NewRepoStore constructs a RepoStore.
func NewRepoStore(repo repository.BookmarkRepository) *RepoStore {
	return &RepoStore{repo: repo}
}

func user(ctx context.Context) (uuid.UUID, error) {
	id, ok := identity.UserID(ctx)
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

// List returns the user's bookmarks, newest first. A stored row that fails
// validation fails the whole list.
func (s *RepoStore) List(ctx context.Context) ([]model.BookmarkRef, error) {
	uid, err := user(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]model.BookmarkRef, 0, len(rows))
	for _, row := range rows {
		b := mapper.BookmarkFromRow(row)
		if err := schema.Bookmark(b); err != nil {
			return nil, fmt.Errorf("bookmark %s: %w", row.ID, err)
		}
		out = append(out, b.Ref())
	}
	return out, nil
}

func (s *RepoStore) Contains(ctx context.Context, recipeID uuid.UUID) (bool, error) {
	uid, err := user(ctx)
	if err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, uid, recipeID)
}

func (s *RepoStore) Add(ctx context.Context, recipeID uuid.UUID) error {
	uid, err := user(ctx)
	if err != nil {
		return err
	}
	return s.repo.Add(ctx, uid, recipeID)
}

func (s *RepoStore) Remove(ctx context.Context, recipeID uuid.UUID) error {
	uid, err := user(ctx)
	if err != nil {
		return err
	}
	return s.repo.Remove(ctx, uid, recipeID)
}
