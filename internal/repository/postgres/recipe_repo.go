package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/model"
)

const recipeColumns = `id, user_id, title, summary, ingredients, directions, tags, tips, cook_time, servings, category, image_url, source, is_public, created_at, updated_at`

// RecipeRepo implements RecipeRepository using PostgreSQL.
type RecipeRepo struct{ db *DB }

// NewRecipeRepo constructs a recipe repository.
func NewRecipeRepo(db *DB) *RecipeRepo { return &RecipeRepo{db: db} }

func scanRecipe(row pgx.Row) (mapper.Row, error) {
	var r mapper.Row
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Summary, &r.Ingredients, &r.Directions, &r.Tags,
		&r.Tips, &r.CookTime, &r.Servings, &r.Category, &r.ImageURL, &r.Source, &r.IsPublic,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *RecipeRepo) queryRows(ctx context.Context, q string, args ...any) ([]mapper.Row, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mapper.Row{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecipeRepo) queryOne(ctx context.Context, q string, args ...any) (*mapper.Row, error) {
	rec, err := scanRecipe(r.db.Pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListPublic returns public recipes, newest first.
func (r *RecipeRepo) ListPublic(ctx context.Context) ([]mapper.Row, error) {
	const q = `SELECT ` + recipeColumns + ` FROM recipes WHERE is_public ORDER BY created_at DESC`
	return r.queryRows(ctx, q)
}

// Get loads a recipe by id regardless of visibility.
func (r *RecipeRepo) Get(ctx context.Context, id uuid.UUID) (*mapper.Row, error) {
	const q = `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	return r.queryOne(ctx, q, id)
}

// Search returns public recipes matching every supplied filter.
func (r *RecipeRepo) Search(ctx context.Context, f model.RecipeFilters, viewer uuid.NullUUID) ([]mapper.Row, error) {
	if f.BookmarkedOnly && !viewer.Valid {
		return nil, errs.ErrUnauthorized
	}
	q, args := buildSearch(f, viewer)
	rows, err := r.queryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return withIngredients(rows, f.Ingredients), nil
}

// withIngredients keeps rows whose decoded ingredients contain every name,
// whatever stored form the ingredients column has.
func withIngredients(rows []mapper.Row, names []string) []mapper.Row {
	want := model.RecipeFilters{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			want.Ingredients = append(want.Ingredients, n)
		}
	}
	if len(want.Ingredients) == 0 {
		return rows
	}
	out := make([]mapper.Row, 0, len(rows))
	for _, row := range rows {
		if want.Match(model.Recipe{Ingredients: mapper.DecodeIngredients(row.Ingredients)}, nil) {
			out = append(out, row)
		}
	}
	return out
}

// buildSearch renders the search query. Every filter except ingredients
// becomes one AND-ed predicate with its own positional argument.
func buildSearch(f model.RecipeFilters, viewer uuid.NullUUID) (string, []any) {
	where := []string{"is_public"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		p := arg("%" + escapeLike(term) + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR summary ILIKE %s)", p, p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(string(f.Category)))
	}
	if f.MaxCookingTime > 0 {
		where = append(where, "cook_time <= "+arg(f.MaxCookingTime))
	}
	if f.Tag != "" {
		where = append(where, arg(f.Tag)+" = ANY(tags)")
	}
	if f.BookmarkedOnly {
		where = append(where, "id IN (SELECT recipe_id FROM bookmarks WHERE user_id = "+arg(viewer.UUID)+")")
	}

	q := `SELECT ` + recipeColumns + ` FROM recipes WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	return q, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// Create inserts a recipe row. Timestamps are assigned by the database.
func (r *RecipeRepo) Create(ctx context.Context, row mapper.Row) (*mapper.Row, error) {
	const q = `
INSERT INTO recipes (id, user_id, title, summary, ingredients, directions, tags, tips, cook_time, servings, category, image_url, source, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + recipeColumns
	rec, err := r.queryOne(ctx, q, row.ID, row.UserID, row.Title, row.Summary, row.Ingredients, row.Directions,
		row.Tags, row.Tips, row.CookTime, row.Servings, row.Category, row.ImageURL, row.Source, row.IsPublic)
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	return rec, err
}

// Update writes the payload columns of a recipe owned by ownerID. A recipe
// that does not exist or belongs to someone else yields ErrNotFound.
func (r *RecipeRepo) Update(ctx context.Context, id, ownerID uuid.UUID, payload map[string]any) (*mapper.Row, error) {
	q, args, err := buildUpdate(id, ownerID, payload)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, q, args...)
}

func buildUpdate(id, ownerID uuid.UUID, payload map[string]any) (string, []any, error) {
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("%w: empty update", errs.ErrValidation)
	}
	allowed := make(map[string]bool, len(mapper.Columns))
	for _, col := range mapper.Columns {
		allowed[col] = true
	}
	cols := make([]string, 0, len(payload))
	for col := range payload {
		if !allowed[col] {
			return "", nil, fmt.Errorf("%w: column %q is not updatable", errs.ErrValidation, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := []any{id, ownerID}
	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		args = append(args, payload[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = now()")

	q := `UPDATE recipes SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND user_id = $2 RETURNING ` + recipeColumns
	return q, args, nil
}

// Delete removes a recipe owned by ownerID and returns its image URL.
func (r *RecipeRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	const q = `DELETE FROM recipes WHERE id = $1 AND user_id = $2 RETURNING image_url`
	var imageURL string
	if err := r.db.Pool.QueryRow(ctx, q, id, ownerID).Scan(&imageURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return imageURL, nil
}

// ListOwned returns all recipes of the owner, public or not.
func (r *RecipeRepo) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]mapper.Row, error) {
	const q = `SELECT ` + recipeColumns + ` FROM recipes WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryRows(ctx, q, ownerID)
}
