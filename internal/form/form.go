// Package form holds the state of a recipe editor: either a new recipe or an
// edit of an existing one, and how a draft is saved in each mode.
package form

import (
	"context"
	"errors"
	"slices"

	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/schema"
)

// ErrSaveFailed is reported when the backend did not accept the draft.
var ErrSaveFailed = errors.New("recipe could not be saved")

// Mode tells a new recipe from an edit.
type Mode int

const (
	ModeNew Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "new"
}

// State is {mode: new} or {mode: edit, initial}. The zero value is New().
type State struct {
	mode    Mode
	initial model.Recipe
}

// New starts an empty form.
func New() State { return State{mode: ModeNew} }

// Edit starts a form over an existing recipe.
func Edit(initial model.Recipe) State { return State{mode: ModeEdit, initial: initial} }

func (s State) Mode() Mode { return s.mode }

// Initial returns the recipe being edited; ok is false in new mode.
func (s State) Initial() (model.Recipe, bool) {
	return s.initial, s.mode == ModeEdit
}

// Draft returns the starting values for the editor.
func (s State) Draft() model.Recipe {
	if s.mode == ModeEdit {
		return s.initial
	}
	return model.Recipe{Servings: 1}
}

// Saver persists recipes.
type Saver interface {
	Create(ctx context.Context, r model.Recipe) (*model.Recipe, error)
	Update(ctx context.Context, id string, p model.RecipePatch) (*model.Recipe, error)
}

// Submit validates draft and saves it. In edit mode only changed fields are
// sent; with no changes the initial recipe is returned and nothing is written.
func (s State) Submit(ctx context.Context, saver Saver, draft model.Recipe) (*model.Recipe, error) {
	if err := schema.Recipe(draft); err != nil {
		return nil, err
	}
	if s.mode == ModeNew {
		return saver.Create(ctx, draft)
	}
	patch := Diff(s.initial, draft)
	if patch.Empty() {
		initial := s.initial
		return &initial, nil
	}
	return saver.Update(ctx, s.initial.ID.String(), patch)
}

// Diff returns a patch with the fields of draft that differ from initial.
func Diff(initial, draft model.Recipe) model.RecipePatch {
	var p model.RecipePatch
	if draft.Title != initial.Title {
		p.Title = &draft.Title
	}
	if draft.Summary != initial.Summary {
		p.Summary = &draft.Summary
	}
	if !slices.Equal(draft.Ingredients, initial.Ingredients) {
		p.Ingredients = &draft.Ingredients
	}
	if !slices.Equal(draft.Directions, initial.Directions) {
		p.Directions = &draft.Directions
	}
	if !slices.Equal(draft.Tags, initial.Tags) {
		p.Tags = &draft.Tags
	}
	if draft.Tips != initial.Tips {
		p.Tips = &draft.Tips
	}
	if draft.CookTime != initial.CookTime {
		p.CookTime = &draft.CookTime
	}
	if draft.Servings != initial.Servings {
		p.Servings = &draft.Servings
	}
	if draft.Category != initial.Category {
		p.Category = &draft.Category
	}
	if draft.ImageURL != initial.ImageURL {
		p.ImageURL = &draft.ImageURL
	}
	if draft.Source != initial.Source {
		p.Source = &draft.Source
	}
	if draft.IsPublic != initial.IsPublic {
		p.IsPublic = &draft.IsPublic
	}
	return p
}

// SafeSaver is the nil-on-failure shape of the recipe service.
type SafeSaver interface {
	Create(ctx context.Context, r model.Recipe) *model.Recipe
	Update(ctx context.Context, id string, p model.RecipePatch) *model.Recipe
}

// FromSafe adapts a nil-on-failure saver; nil becomes ErrSaveFailed.
func FromSafe(s SafeSaver) Saver { return safeSaver{s} }

type safeSaver struct{ s SafeSaver }

func (a safeSaver) Create(ctx context.Context, r model.Recipe) (*model.Recipe, error) {
	if out := a.s.Create(ctx, r); out != nil {
		return out, nil
	}
	return nil, ErrSaveFailed
}

func (a safeSaver) Update(ctx context.Context, id string, p model.RecipePatch) (*model.Recipe, error) {
	if out := a.s.Update(ctx, id, p); out != nil {
		return out, nil
	}
	return nil, ErrSaveFailed
}
