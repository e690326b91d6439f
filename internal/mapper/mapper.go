// Package mapper translates between the snake_case storage rows and the
// camelCase application model. Decoding of ingredient and direction columns
// is tolerant: rows written by older clients may hold JSON-encoded strings
// instead of arrays, and those never fail a read.
package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/model"
)

// Row is a recipes table record as stored.
type Row struct {
	ID          uuid.UUID
	UserID      uuid.NullUUID
	Title       string
	Summary     string
	Ingredients json.RawMessage
	Directions  json.RawMessage
	Tags        []string
	Tips        string
	CookTime    int
	Servings    int
	Category    string
	ImageURL    string
	Source      string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookmarkRow is a bookmarks table record as stored.
type BookmarkRow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	RecipeID  uuid.UUID
	CreatedAt time.Time
}

// Columns maps the updatable camelCase fields to their storage columns.
var Columns = map[string]string{
	"title":       "title",
	"summary":     "summary",
	"ingredients": "ingredients",
	"directions":  "directions",
	"tags":        "tags",
	"tips":        "tips",
	"cookTime":    "cook_time",
	"servings":    "servings",
	"category":    "category",
	"imageUrl":    "image_url",
	"source":      "source",
	"isPublic":    "is_public",
}

// maxDepth bounds how many times a string is unwrapped as nested JSON.
const maxDepth = 3

// FromRow maps a stored row to a recipe. It never fails; malformed
// sub-arrays degrade and are left for schema validation to reject.
func FromRow(r Row) model.Recipe {
	var tags []string
	if len(r.Tags) > 0 {
		tags = append(tags, r.Tags...)
	}
	return model.Recipe{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Summary:     r.Summary,
		Ingredients: DecodeIngredients(r.Ingredients),
		Directions:  DecodeDirections(r.Directions),
		Tags:        tags,
		Tips:        r.Tips,
		CookTime:    r.CookTime,
		Servings:    r.Servings,
		Category:    model.Category(r.Category),
		ImageURL:    r.ImageURL,
		Source:      r.Source,
		IsPublic:    r.IsPublic,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ToRow maps a recipe to its storage row. Sub-arrays are JSON encoded.
func ToRow(r model.Recipe) Row {
	return Row{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Summary:     r.Summary,
		Ingredients: encodeList(r.Ingredients),
		Directions:  encodeList(r.Directions),
		Tags:        nonNilTags(r.Tags),
		Tips:        r.Tips,
		CookTime:    r.CookTime,
		Servings:    r.Servings,
		Category:    string(r.Category),
		ImageURL:    r.ImageURL,
		Source:      r.Source,
		IsPublic:    r.IsPublic,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// BookmarkFromRow maps a stored bookmark.
func BookmarkFromRow(r BookmarkRow) model.Bookmark {
	return model.Bookmark{ID: r.ID, UserID: r.UserID, RecipeID: r.RecipeID, CreatedAt: r.CreatedAt}
}

// UpdatePayload returns column -> value for the fields the patch supplies.
// Fields the patch leaves nil are absent from the result.
func UpdatePayload(p model.RecipePatch) map[string]any {
	out := make(map[string]any)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Summary != nil {
		out["summary"] = *p.Summary
	}
	if p.Ingredients != nil {
		out["ingredients"] = encodeList(*p.Ingredients)
	}
	if p.Directions != nil {
		out["directions"] = encodeList(*p.Directions)
	}
	if p.Tags != nil {
		out["tags"] = nonNilTags(*p.Tags)
	}
	if p.Tips != nil {
		out["tips"] = *p.Tips
	}
	if p.CookTime != nil {
		out["cook_time"] = *p.CookTime
	}
	if p.Servings != nil {
		out["servings"] = *p.Servings
	}
	if p.Category != nil {
		out["category"] = string(*p.Category)
	}
	if p.ImageURL != nil {
		out["image_url"] = *p.ImageURL
	}
	if p.Source != nil {
		out["source"] = *p.Source
	}
	if p.IsPublic != nil {
		out["is_public"] = *p.IsPublic
	}
	return out
}

// PatchFromJSON builds a patch from a camelCase request body. Keys outside
// Columns are ignored and a JSON null leaves the field unset.
func PatchFromJSON(body map[string]json.RawMessage) (model.RecipePatch, error) {
	var p model.RecipePatch
	targets := map[string]any{
		"title":       &p.Title,
		"summary":     &p.Summary,
		"ingredients": &p.Ingredients,
		"directions":  &p.Directions,
		"tags":        &p.Tags,
		"tips":        &p.Tips,
		"cookTime":    &p.CookTime,
		"servings":    &p.Servings,
		"category":    &p.Category,
		"imageUrl":    &p.ImageURL,
		"source":      &p.Source,
		"isPublic":    &p.IsPublic,
	}
	for key, raw := range body {
		if _, ok := Columns[key]; !ok {
			continue
		}
		if err := json.Unmarshal(raw, targets[key]); err != nil {
			return model.RecipePatch{}, fmt.Errorf("%w: %s: %v", errs.ErrValidation, key, err)
		}
	}
	return p, nil
}

// PatchOf returns a patch that supplies every updatable field of r.
func PatchOf(r model.Recipe) model.RecipePatch {
	ingredients := r.Ingredients
	directions := r.Directions
	tags := r.Tags
	return model.RecipePatch{
		Title:       &r.Title,
		Summary:     &r.Summary,
		Ingredients: &ingredients,
		Directions:  &directions,
		Tags:        &tags,
		Tips:        &r.Tips,
		CookTime:    &r.CookTime,
		Servings:    &r.Servings,
		Category:    &r.Category,
		ImageURL:    &r.ImageURL,
		Source:      &r.Source,
		IsPublic:    &r.IsPublic,
	}
}

// DecodeIngredients reads an ingredients column in any of its stored forms.
// A bare string that is not JSON becomes {name: s, amount: ""}.
func DecodeIngredients(raw json.RawMessage) []model.Ingredient {
	return decodeList(raw, func(s string) model.Ingredient {
		return model.Ingredient{Name: s, Amount: ""}
	}, 0)
}

// DecodeDirections reads a directions column in any of its stored forms.
// A bare string that is not JSON becomes {title: s}.
func DecodeDirections(raw json.RawMessage) []model.Direction {
	return decodeList(raw, func(s string) model.Direction {
		return model.Direction{Title: s}
	}, 0)
}

func decodeList[T any](raw json.RawMessage, fallback func(string) T, depth int) []T {
	out := []T{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return out
	}
	switch raw[0] {
	case '"':
		return append(out, decodeString(raw, fallback, depth)...)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return out
		}
		for _, el := range elems {
			el = bytes.TrimSpace(el)
			if len(el) == 0 {
				continue
			}
			switch el[0] {
			case '{':
				if v, ok := decodeObject[T](el); ok {
					out = append(out, v)
				}
			case '"':
				out = append(out, decodeString(el, fallback, depth)...)
			}
		}
		return out
	case '{':
		if v, ok := decodeObject[T](raw); ok {
			out = append(out, v)
		}
		return out
	default:
		return out
	}
}

// decodeString unwraps a JSON string literal; if its content is itself a JSON
// array, object or string it is decoded again, otherwise the text is wrapped.
func decodeString[T any](lit json.RawMessage, fallback func(string) T, depth int) []T {
	var s string
	if err := json.Unmarshal(lit, &s); err != nil {
		return nil
	}
	inner := bytes.TrimSpace([]byte(s))
	if depth < maxDepth && len(inner) > 0 && json.Valid(inner) {
		switch inner[0] {
		case '[', '{', '"':
			return decodeList(json.RawMessage(inner), fallback, depth+1)
		}
	}
	return []T{fallback(s)}
}

func decodeObject[T any](raw json.RawMessage) (T, bool) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func encodeList[T any](items []T) json.RawMessage {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return json.RawMessage("[]")
	}
	return b
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
