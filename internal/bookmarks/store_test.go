package bookmarks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/repository"
)

// memRepo is an in-memory BookmarkRepository keyed by (user, recipe).
type memRepo struct {
	mu    sync.Mutex
	rows  map[[2]uuid.UUID]mapper.BookmarkRow
	clock time.Time
	bad   bool
}

var _ repository.BookmarkRepository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{rows: map[[2]uuid.UUID]mapper.BookmarkRow{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memRepo) List(_ context.Context, userID uuid.UUID) ([]mapper.BookmarkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []mapper.BookmarkRow{}
	for k, r := range m.rows {
		if k[0] == userID {
			if m.bad {
				r.RecipeID = uuid.Nil
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Exists(_ context.Context, userID, recipeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[[2]uuid.UUID{userID, recipeID}]
	return ok, nil
}

func (m *memRepo) Add(_ context.Context, userID, recipeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]uuid.UUID{userID, recipeID}
	if _, ok := m.rows[k]; ok {
		return nil
	}
	m.clock = m.clock.Add(time.Second)
	m.rows[k] = mapper.BookmarkRow{ID: uuid.Must(uuid.NewV4()), UserID: userID, RecipeID: recipeID, CreatedAt: m.clock}
	return nil
}

func (m *memRepo) Remove(_ context.Context, userID, recipeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, [2]uuid.UUID{userID, recipeID})
	return nil
}

func TestRepoStore_RequiresSession(t *testing.T) {
	s := NewRepoStore(newMemRepo())
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	_, err := s.List(ctx)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = s.Contains(ctx, id)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.ErrorIs(t, s.Add(ctx, id), errs.ErrUnauthorized)
	require.ErrorIs(t, s.Remove(ctx, id), errs.ErrUnauthorized)
}

func TestRepoStore_PerUser(t *testing.T) {
	repo := newMemRepo()
	s := NewRepoStore(repo)
	alice := identity.WithUserID(context.Background(), uuid.Must(uuid.NewV4()))
	bob := identity.WithUserID(context.Background(), uuid.Must(uuid.NewV4()))
	recipe := uuid.Must(uuid.NewV4())

	require.NoError(t, s.Add(alice, recipe))
	require.NoError(t, s.Add(alice, recipe))

	ok, err := s.Contains(alice, recipe)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Contains(bob, recipe)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := s.List(alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, recipe, list[0].RecipeID)

	repo.bad = true
	_, err = s.List(alice)
	require.ErrorIs(t, err, errs.ErrValidation)
}
