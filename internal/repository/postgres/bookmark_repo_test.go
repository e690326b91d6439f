package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/mapper"
)

func TestBookmarkRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBookmarkRepo(db)
	user := uuid.Must(uuid.NewV4())
	b := mapper.BookmarkRow{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    user,
		RecipeID:  uuid.Must(uuid.NewV4()),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mock.ExpectQuery(`SELECT id, user_id, recipe_id, created_at FROM bookmarks WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(user).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "recipe_id", "created_at"}).
			AddRow(b.ID, b.UserID, b.RecipeID, b.CreatedAt))
	got, err := r.List(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, []mapper.BookmarkRow{b}, got)

	mock.ExpectQuery(`FROM bookmarks WHERE user_id`).
		WithArgs(user).
		WillReturnError(errors.New("down"))
	_, err = r.List(context.Background(), user)
	require.Error(t, err)
}

func TestBookmarkRepo_Exists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBookmarkRepo(db)
	user, recipe := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM bookmarks WHERE user_id = \$1 AND recipe_id = \$2\)`).
		WithArgs(user, recipe).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.Exists(context.Background(), user, recipe)
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(user, recipe).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	ok, err = r.Exists(context.Background(), user, recipe)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBookmarkRepo_Add(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBookmarkRepo(db)
	user, recipe := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`INSERT INTO bookmarks \(id, user_id, recipe_id\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(user_id, recipe_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), user, recipe).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Add(context.Background(), user, recipe))

	// duplicate: conflict absorbed, zero rows
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(pgxmock.AnyArg(), user, recipe).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	require.NoError(t, r.Add(context.Background(), user, recipe))

	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(pgxmock.AnyArg(), user, recipe).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	require.ErrorIs(t, r.Add(context.Background(), user, recipe), errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkRepo_Remove(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBookmarkRepo(db)
	user, recipe := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM bookmarks WHERE user_id = \$1 AND recipe_id = \$2`).
		WithArgs(user, recipe).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.Remove(context.Background(), user, recipe))
	require.NoError(t, mock.ExpectationsWereMet())
}
