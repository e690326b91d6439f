package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/repository"
	"github.com/and161185/recipebox/internal/schema"
)

// RecipeService is the recipe data-access contract. No method returns an
// error: failures are logged with the operation tag and reported as the safe
// empty value (nil, an empty slice, or false).
type RecipeService interface {
	List(ctx context.Context) []model.Recipe
	GetByID(ctx context.Context, id string) *model.Recipe
	Search(ctx context.Context, f model.RecipeFilters) []model.Recipe
	Create(ctx context.Context, r model.Recipe) *model.Recipe
	Update(ctx context.Context, id string, p model.RecipePatch) *model.Recipe
	Delete(ctx context.Context, id string) bool
	ListOwned(ctx context.Context) []model.Recipe
	Categories() []model.Category
}

// ImageRemover deletes a stored image by its public URL.
type ImageRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

var errNoSession = errors.New("no authenticated user")

type RecipeServiceImpl struct {
	repo   repository.RecipeRepository
	images ImageRemover
	log    *zap.Logger
}

// NewRecipeService constructs the recipe service. images may be nil.
func NewRecipeService(repo repository.RecipeRepository, images ImageRemover, log *zap.Logger) *RecipeServiceImpl {
	return &RecipeServiceImpl{repo: repo, images: images, log: log}
}

func (s *RecipeServiceImpl) fail(op string, err error) {
	if errors.Is(err, errNoSession) {
		s.log.Warn("recipe operation rejected", zap.String("op", op), zap.Error(err))
		return
	}
	s.log.Error("recipe operation failed", zap.String("op", op), zap.Error(err))
}

// fromRows maps and validates every row; one invalid row fails the list.
func fromRows(rows []mapper.Row) ([]model.Recipe, error) {
	out := make([]model.Recipe, 0, len(rows))
	for _, row := range rows {
		rec := mapper.FromRow(row)
		if err := schema.Recipe(rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func fromRow(row *mapper.Row) (*model.Recipe, error) {
	rec := mapper.FromRow(*row)
	if err := schema.Recipe(rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RecipeServiceImpl) list(op string, rows []mapper.Row, err error) []model.Recipe {
	if err != nil {
		s.fail(op, err)
		return []model.Recipe{}
	}
	out, err := fromRows(rows)
	if err != nil {
		s.fail(op, err)
		return []model.Recipe{}
	}
	return out
}

func (s *RecipeServiceImpl) one(op string, row *mapper.Row, err error) *model.Recipe {
	if err != nil {
		s.fail(op, err)
		return nil
	}
	rec, err := fromRow(row)
	if err != nil {
		s.fail(op, err)
		return nil
	}
	return rec
}

// List returns public recipes, newest first.
func (s *RecipeServiceImpl) List(ctx context.Context) []model.Recipe {
	rows, err := s.repo.ListPublic(ctx)
	return s.list("list", rows, err)
}

// GetByID returns a recipe of any visibility, or nil.
func (s *RecipeServiceImpl) GetByID(ctx context.Context, id string) *model.Recipe {
	rid, err := uuid.FromString(id)
	if err != nil {
		s.fail("get", err)
		return nil
	}
	row, err := s.repo.Get(ctx, rid)
	return s.one("get", row, err)
}

// Search returns public recipes matching all filters, newest first.
func (s *RecipeServiceImpl) Search(ctx context.Context, f model.RecipeFilters) []model.Recipe {
	if err := schema.Filters(f); err != nil {
		s.fail("search", err)
		return []model.Recipe{}
	}
	viewer := identity.Viewer(ctx)
	if f.BookmarkedOnly && !viewer.Valid {
		s.fail("search", errNoSession)
		return []model.Recipe{}
	}
	rows, err := s.repo.Search(ctx, f, viewer)
	return s.list("search", rows, err)
}

// Create stores a new recipe owned by the caller.
func (s *RecipeServiceImpl) Create(ctx context.Context, r model.Recipe) *model.Recipe {
	owner, ok := identity.UserID(ctx)
	if !ok {
		s.fail("create", errNoSession)
		return nil
	}
	if err := schema.Recipe(r); err != nil {
		s.fail("create", err)
		return nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		s.fail("create", err)
		return nil
	}
	r.ID = id
	r.UserID = uuid.NullUUID{UUID: owner, Valid: true}
	row, err := s.repo.Create(ctx, mapper.ToRow(r))
	return s.one("create", row, err)
}

// Update applies a partial update to a recipe the caller owns.
func (s *RecipeServiceImpl) Update(ctx context.Context, id string, p model.RecipePatch) *model.Recipe {
	owner, ok := identity.UserID(ctx)
	if !ok {
		s.fail("update", errNoSession)
		return nil
	}
	rid, err := uuid.FromString(id)
	if err != nil {
		s.fail("update", err)
		return nil
	}
	if p.Empty() {
		s.fail("update", errors.New("empty patch"))
		return nil
	}
	if err := schema.Patch(p); err != nil {
		s.fail("update", err)
		return nil
	}
	row, err := s.repo.Update(ctx, rid, owner, mapper.UpdatePayload(p))
	return s.one("update", row, err)
}

// Delete removes a recipe the caller owns. Its image is removed best-effort.
func (s *RecipeServiceImpl) Delete(ctx context.Context, id string) bool {
	owner, ok := identity.UserID(ctx)
	if !ok {
		s.fail("delete", errNoSession)
		return false
	}
	rid, err := uuid.FromString(id)
	if err != nil {
		s.fail("delete", err)
		return false
	}
	imageURL, err := s.repo.Delete(ctx, rid, owner)
	if err != nil {
		s.fail("delete", err)
		return false
	}
	if imageURL != "" && s.images != nil {
		if err := s.images.DeleteByURL(ctx, imageURL); err != nil {
			s.log.Warn("recipe image not removed", zap.String("op", "delete"),
				zap.String("url", imageURL), zap.Error(err))
		}
	}
	return true
}

// ListOwned returns every recipe of the caller.
func (s *RecipeServiceImpl) ListOwned(ctx context.Context) []model.Recipe {
	owner, ok := identity.UserID(ctx)
	if !ok {
		s.fail("list_owned", errNoSession)
		return []model.Recipe{}
	}
	rows, err := s.repo.ListOwned(ctx, owner)
	return s.list("list_owned", rows, err)
}

// Categories returns the fixed category set.
func (s *RecipeServiceImpl) Categories() []model.Category {
	return append([]model.Category(nil), model.Categories...)
}
