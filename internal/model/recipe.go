package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name    string `json:"name" validate:"required"`
	Amount  string `json:"amount"`
	IsSpice bool   `json:"isSpice,omitempty"`
}

// Direction is one step; it needs a title, a description, or both.
type Direction struct {
	Title       string `json:"title,omitempty" validate:"required_without=Description"`
	Description string `json:"description,omitempty" validate:"required_without=Title"`
}

// Recipe is the application shape of a stored recipe.
type Recipe struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.NullUUID `json:"userId"`
	Title       string        `json:"title" validate:"required"`
	Summary     string        `json:"summary,omitempty"`
	Ingredients []Ingredient  `json:"ingredients" validate:"min=1,dive"`
	Directions  []Direction   `json:"directions" validate:"min=1,dive"`
	Tags        []string      `json:"tags,omitempty" validate:"dive,required"`
	Tips        string        `json:"tips,omitempty"`
	CookTime    int           `json:"cookTime" validate:"min=1"`
	Servings    int           `json:"servings" validate:"min=1"`
	Category    Category      `json:"category" validate:"category"`
	ImageURL    string        `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Source      string        `json:"source,omitempty"`
	IsPublic    bool          `json:"isPublic"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// OwnedBy reports whether the recipe belongs to the given user.
func (r Recipe) OwnedBy(userID uuid.UUID) bool {
	return r.UserID.Valid && r.UserID.UUID == userID
}

// RecipePatch is a partial update. Nil fields are left untouched.
type RecipePatch struct {
	Title       *string       `json:"title,omitempty" validate:"omitempty,min=1"`
	Summary     *string       `json:"summary,omitempty"`
	Ingredients *[]Ingredient `json:"ingredients,omitempty" validate:"omitempty,min=1,dive"`
	Directions  *[]Direction  `json:"directions,omitempty" validate:"omitempty,min=1,dive"`
	Tags        *[]string     `json:"tags,omitempty" validate:"omitempty,dive,required"`
	Tips        *string       `json:"tips,omitempty"`
	CookTime    *int          `json:"cookTime,omitempty" validate:"omitempty,min=1"`
	Servings    *int          `json:"servings,omitempty" validate:"omitempty,min=1"`
	Category    *Category     `json:"category,omitempty" validate:"omitempty,category"`
	ImageURL    *string       `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Source      *string       `json:"source,omitempty"`
	IsPublic    *bool         `json:"isPublic,omitempty"`
}

// Empty reports whether the patch supplies no fields.
func (p RecipePatch) Empty() bool {
	return p == RecipePatch{}
}

// Apply returns a copy of r with the supplied fields replaced.
func (p RecipePatch) Apply(r Recipe) Recipe {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Summary != nil {
		r.Summary = *p.Summary
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Directions != nil {
		r.Directions = *p.Directions
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Tips != nil {
		r.Tips = *p.Tips
	}
	if p.CookTime != nil {
		r.CookTime = *p.CookTime
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
	if p.Source != nil {
		r.Source = *p.Source
	}
	if p.IsPublic != nil {
		r.IsPublic = *p.IsPublic
	}
	return r
}
