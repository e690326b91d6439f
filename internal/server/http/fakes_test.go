package httpserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/service"
)

type fakeAuth struct{ id uuid.UUID }

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, username, password string) (uuid.UUID, error) {
	switch {
	case username == "" || password == "":
		return uuid.Nil, errs.ErrValidation
	case username == "taken":
		return uuid.Nil, errs.ErrAlreadyExists
	}
	return f.id, nil
}

func (f *fakeAuth) LoginWithIP(_ context.Context, username, password, _ string) (model.Tokens, model.Profile, error) {
	if username == "locked" {
		return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
	}
	if password != "pw" {
		return model.Tokens{}, model.Profile{}, errs.ErrUnauthorized
	}
	return model.Tokens{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, model.Profile{ID: f.id}, nil
}

type fakeRecipes struct {
	mu       sync.Mutex
	byID     map[string]model.Recipe
	lastFind model.RecipeFilters
}

var _ service.RecipeService = (*fakeRecipes)(nil)

func newFakeRecipes() *fakeRecipes { return &fakeRecipes{byID: map[string]model.Recipe{}} }

func (f *fakeRecipes) List(context.Context) []model.Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Recipe{}
	for _, r := range f.byID {
		if r.IsPublic {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRecipes) GetByID(_ context.Context, id string) *model.Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok {
		return &r
	}
	return nil
}

func (f *fakeRecipes) Search(ctx context.Context, flt model.RecipeFilters) []model.Recipe {
	f.mu.Lock()
	f.lastFind = flt
	f.mu.Unlock()
	out := []model.Recipe{}
	for _, r := range f.List(ctx) {
		if flt.Match(r, nil) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRecipes) Create(ctx context.Context, r model.Recipe) *model.Recipe {
	owner, ok := identity.UserID(ctx)
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.Must(uuid.NewV4())
	r.UserID = uuid.NullUUID{UUID: owner, Valid: true}
	f.byID[r.ID.String()] = r
	return &r
}

func (f *fakeRecipes) Update(ctx context.Context, id string, p model.RecipePatch) *model.Recipe {
	owner, _ := identity.UserID(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || !r.OwnedBy(owner) {
		return nil
	}
	r = p.Apply(r)
	f.byID[id] = r
	return &r
}

func (f *fakeRecipes) Delete(ctx context.Context, id string) bool {
	owner, _ := identity.UserID(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || !r.OwnedBy(owner) {
		return false
	}
	delete(f.byID, id)
	return true
}

func (f *fakeRecipes) ListOwned(ctx context.Context) []model.Recipe {
	owner, _ := identity.UserID(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Recipe{}
	for _, r := range f.byID {
		if r.OwnedBy(owner) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRecipes) Categories() []model.Category { return model.Categories }

type fakeImages struct{ got []byte }

var _ service.ImageUploader = (*fakeImages)(nil)

func (f *fakeImages) Upload(_ context.Context, recipeID string, src []byte) (string, error) {
	if string(src) == "not an image" {
		return "", errs.ErrCompressionFailed
	}
	f.got = src
	return "https://cdn.example/" + recipeID + ".jpg", nil
}

type fakeImporter struct{}

var _ service.RecipeImporter = fakeImporter{}

func (fakeImporter) Import(_ context.Context, url string) (model.Recipe, error) {
	switch url {
	case "https://ok.example/tea":
		return model.Recipe{Title: "Imported tea", Source: url}, nil
	case "ftp://bad":
		return model.Recipe{}, errs.ErrValidation
	}
	return model.Recipe{}, errors.New("dial tcp: no route")
}
