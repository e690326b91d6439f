package bookmarks

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/model"
)

// ScopeFunc names the hub scope a request's bookmarks belong to.
type ScopeFunc func(ctx context.Context) (string, error)

// UserScope scopes by the authenticated profile.
func UserScope(ctx context.Context) (string, error) {
	id, ok := identity.UserID(ctx)
	if !ok {
		return "", errs.ErrUnauthorized
	}
	return id.String(), nil
}

// FixedScope scopes every request the same way; used with FileStore.
func FixedScope(scope string) ScopeFunc {
	return func(context.Context) (string, error) { return scope, nil }
}

// Service toggles bookmarks and publishes the new list after each change.
type Service struct {
	store Store
	hub   *Hub
	scope ScopeFunc
	log   *zap.Logger
}

// NewService constructs a bookmark service. hub may be nil.
func NewService(store Store, hub *Hub, scope ScopeFunc, log *zap.Logger) *Service {
	return &Service{store: store, hub: hub, scope: scope, log: log}
}

// Toggle flips membership of recipeID and returns the new state.
//
// Contains and the following Add or Remove are separate calls. Two toggles
// racing from different clients may both see the same state; duplicates are
// absorbed by the store and the next read shows the final state.
func (s *Service) Toggle(ctx context.Context, recipeID uuid.UUID) (bool, error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return false, err
	}
	present, err := s.store.Contains(ctx, recipeID)
	if err != nil {
		return false, err
	}
	if present {
		err = s.store.Remove(ctx, recipeID)
	} else {
		err = s.store.Add(ctx, recipeID)
	}
	if err != nil {
		return present, err
	}
	s.broadcast(ctx, scope)
	return !present, nil
}

// Add bookmarks recipeID and publishes the new list. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, recipeID uuid.UUID) error {
	return s.set(ctx, recipeID, s.store.Add)
}

// Remove drops recipeID and publishes the new list.
func (s *Service) Remove(ctx context.Context, recipeID uuid.UUID) error {
	return s.set(ctx, recipeID, s.store.Remove)
}

func (s *Service) set(ctx context.Context, recipeID uuid.UUID, op func(context.Context, uuid.UUID) error) error {
	scope, err := s.scope(ctx)
	if err != nil {
		return err
	}
	if err := op(ctx, recipeID); err != nil {
		return err
	}
	s.broadcast(ctx, scope)
	return nil
}

// IsBookmarked reports whether recipeID is bookmarked.
func (s *Service) IsBookmarked(ctx context.Context, recipeID uuid.UUID) (bool, error) {
	return s.store.Contains(ctx, recipeID)
}

// List returns the current bookmarks.
func (s *Service) List(ctx context.Context) ([]model.BookmarkRef, error) {
	return s.store.List(ctx)
}

// Subscribe follows the bookmark list of the request's scope. The current
// list is delivered first.
func (s *Service) Subscribe(ctx context.Context) (<-chan []model.BookmarkRef, func(), error) {
	if s.hub == nil {
		return nil, nil, errs.ErrNotFound
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, nil, err
	}
	current, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.SubscribeFrom(scope, current)
	return ch, cancel, nil
}

func (s *Service) broadcast(ctx context.Context, scope string) {
	if s.hub == nil {
		return
	}
	list, err := s.store.List(ctx)
	if err != nil {
		s.log.Warn("bookmark list not published", zap.String("scope", scope), zap.Error(err))
		return
	}
	s.hub.Publish(scope, list)
}
