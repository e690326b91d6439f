// Package schema validates recipes, patches, filters and bookmarks against the
// declarative rules carried in the model struct tags. The same rules check
// client input and rows read back from storage.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.IsCategory(fl.Field().String())
	})
	return v
}

// FieldError describes a single rule violation in camelCase field terms.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error is returned for any schema violation; it matches errs.ErrValidation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Rule)
	}
	return fmt.Sprintf("%s: %s", errs.ErrValidation, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, errs.ErrValidation) true.
func (e *Error) Is(target error) bool { return target == errs.ErrValidation }

// Recipe checks a full recipe before create and after every read.
func Recipe(r model.Recipe) error { return check(r) }

// Patch checks only the fields a partial update supplies.
func Patch(p model.RecipePatch) error { return check(p) }

// Filters checks a search query.
func Filters(f model.RecipeFilters) error { return check(f) }

// Bookmark checks a stored bookmark row.
func Bookmark(b model.Bookmark) error {
	var fields []FieldError
	if b.ID.IsNil() {
		fields = append(fields, FieldError{Field: "id", Rule: "required"})
	}
	if b.UserID.IsNil() {
		fields = append(fields, FieldError{Field: "userId", Rule: "required"})
	}
	if b.RecipeID.IsNil() {
		fields = append(fields, FieldError{Field: "recipeId", Rule: "required"})
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe), Rule: fe.Tag()})
	}
	return out
}

// fieldPath turns "Recipe.ingredients[0].name" into "ingredients[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
