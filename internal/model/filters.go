package model

import (
	"strings"

	"github.com/gofrs/uuid/v5"
)

// RecipeFilters is a transient search query. Zero fields do not filter.
type RecipeFilters struct {
	Search         string   `json:"search,omitempty"`
	Category       Category `json:"category,omitempty" validate:"omitempty,category"`
	MaxCookingTime int      `json:"maxCookingTime,omitempty" validate:"min=0"`
	Tag            string   `json:"tag,omitempty"`
	BookmarkedOnly bool     `json:"bookmarkedOnly,omitempty"`
	Ingredients    []string `json:"ingredients,omitempty" validate:"dive,required"`
}

// Match reports whether r satisfies every filter. It does not check visibility.
// isBookmarked is consulted only for BookmarkedOnly; nil means nothing is bookmarked.
func (f RecipeFilters) Match(r Recipe, isBookmarked func(uuid.UUID) bool) bool {
	if term := strings.TrimSpace(f.Search); term != "" {
		term = strings.ToLower(term)
		if !strings.Contains(strings.ToLower(r.Title), term) &&
			!strings.Contains(strings.ToLower(r.Summary), term) {
			return false
		}
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.MaxCookingTime > 0 && r.CookTime > f.MaxCookingTime {
		return false
	}
	if f.Tag != "" && !containsString(r.Tags, f.Tag) {
		return false
	}
	for _, want := range f.Ingredients {
		if !hasIngredient(r.Ingredients, want) {
			return false
		}
	}
	if f.BookmarkedOnly && (isBookmarked == nil || !isBookmarked(r.ID)) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasIngredient(items []Ingredient, sub string) bool {
	sub = strings.ToLower(strings.TrimSpace(sub))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), sub) {
			return true
		}
	}
	return false
}
