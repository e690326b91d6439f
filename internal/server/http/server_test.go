package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/recipebox/internal/bookmarks"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/model"
)

var testKey = []byte("test-signing-key-0123456789")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	h       http.Handler
	recipes *fakeRecipes
	images  *fakeImages
	auth    *fakeAuth
	media   string
}

func newEnv(t *testing.T, opts ...func(*Options)) *env {
	t.Helper()
	log := zaptest.NewLogger(t)
	e := &env{
		recipes: newFakeRecipes(),
		images:  &fakeImages{},
		auth:    &fakeAuth{id: uuid.Must(uuid.NewV4())},
		media:   t.TempDir(),
	}
	marks := bookmarks.NewService(
		bookmarks.NewFileStore(filepath.Join(t.TempDir(), "b.json")),
		bookmarks.NewHub(), bookmarks.UserScope, log)
	o := Options{CORSOrigins: []string{"https://recipes.example"}, MediaDir: e.media}
	for _, fn := range opts {
		fn(&o)
	}
	e.h = New(Deps{
		Auth:      e.auth,
		Recipes:   e.recipes,
		Bookmarks: marks,
		Images:    e.images,
		Importer:  fakeImporter{},
		Verifier:  identity.NewVerifier(testKey),
		Log:       log,
	}, o)
	return e
}

func bearer(t *testing.T, id uuid.UUID) string {
	t.Helper()
	tok, _, err := identity.NewIssuer(testKey, time.Hour).Issue(id)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *env) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func tea() model.Recipe {
	return model.Recipe{
		Title:       "Tea",
		Ingredients: []model.Ingredient{{Name: "Water", Amount: "1 cup"}},
		Directions:  []model.Direction{{Title: "Boil"}},
		CookTime:    5,
		Servings:    1,
		Category:    "Beverage",
		IsPublic:    true,
	}
}

func TestAuthRoutes(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "u", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, e.auth.id.String(), decode[map[string]string](t, w)["userId"])

	w = e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "taken", "password": "pw"})
	require.Equal(t, http.StatusConflict, w.Code)
	w = e.do(t, http.MethodPost, "/v1/auth/register", "", "{")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "u", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tok", decode[map[string]any](t, w)["accessToken"])

	w = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "u", "password": "x"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "locked", "password": "pw"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRecipeRoutes_Lifecycle(t *testing.T) {
	e := newEnv(t)
	owner := bearer(t, uuid.Must(uuid.NewV4()))
	other := bearer(t, uuid.Must(uuid.NewV4()))

	w := e.do(t, http.MethodPost, "/v1/recipes", "", tea())
	require.Equal(t, http.StatusUnauthorized, w.Code)

	bad := tea()
	bad.Ingredients = []model.Ingredient{{Amount: "1"}}
	w = e.do(t, http.MethodPost, "/v1/recipes", owner, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	require.Equal(t, "ingredients[0].name", body.Fields[0].Field)

	w = e.do(t, http.MethodPost, "/v1/recipes", owner, tea())
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Recipe](t, w)
	path := "/v1/recipes/" + created.ID.String()

	w = e.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Tea", decode[model.Recipe](t, w).Title)

	w = e.do(t, http.MethodPatch, path, other, `{"title":"Mine now"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodPatch, path, owner, `{"unknown":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPatch, path, owner, `{"cookTime":"soon"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPatch, path, owner, `{"title":"Green tea","tags":["hot"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	upd := decode[model.Recipe](t, w)
	require.Equal(t, "Green tea", upd.Title)
	require.Equal(t, []string{"hot"}, upd.Tags)
	require.Equal(t, 5, upd.CookTime)

	w = e.do(t, http.MethodGet, "/v1/recipes/mine", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[map[string][]model.Recipe](t, w)["recipes"], 1)

	w = e.do(t, http.MethodDelete, path, other, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeRoutes_SearchAndCategories(t *testing.T) {
	e := newEnv(t)
	owner := bearer(t, uuid.Must(uuid.NewV4()))
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/v1/recipes", owner, tea()).Code)

	w := e.do(t, http.MethodGet, "/v1/recipes/search?category=Beverage&maxCookingTime=5&ingredient=wat&ingredient=Water", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[map[string][]model.Recipe](t, w)["recipes"], 1)
	require.Equal(t, []string{"wat", "Water"}, e.recipes.lastFind.Ingredients)

	w = e.do(t, http.MethodGet, "/v1/recipes/search?maxCookingTime=4", "", nil)
	require.Empty(t, decode[map[string][]model.Recipe](t, w)["recipes"])

	w = e.do(t, http.MethodGet, "/v1/recipes/search?maxCookingTime=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, "/v1/recipes/search?category=Pizza", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, "/v1/recipes/search?bookmarkedOnly=true", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/v1/recipes", "", nil)
	require.Len(t, decode[map[string][]model.Recipe](t, w)["recipes"], 1)

	w = e.do(t, http.MethodGet, "/v1/categories", "", nil)
	require.Equal(t, model.Categories, decode[map[string][]model.Category](t, w)["categories"])
}

func TestAuthMiddleware_BadToken(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/v1/recipes", "Bearer garbage", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/recipes", nil)
	req.Header.Set("Origin", "https://recipes.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	require.Equal(t, "https://recipes.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestImportRoute(t *testing.T) {
	e := newEnv(t)
	user := bearer(t, uuid.Must(uuid.NewV4()))

	w := e.do(t, http.MethodPost, "/v1/recipes/import", user, map[string]string{"url": "https://ok.example/tea"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Imported tea", decode[model.Recipe](t, w).Title)

	w = e.do(t, http.MethodPost, "/v1/recipes/import", user, map[string]string{"url": "ftp://bad"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPost, "/v1/recipes/import", user, map[string]string{"url": "https://down.example"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	w = e.do(t, http.MethodPost, "/v1/recipes/import", "", map[string]string{"url": "https://ok.example/tea"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func multipartImage(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("recipeId", "r1"))
	fw, err := mw.CreateFormFile("image", "tea.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadImageRoute(t *testing.T) {
	e := newEnv(t)
	user := bearer(t, uuid.Must(uuid.NewV4()))

	upload := func(data []byte) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, data)
		req := httptest.NewRequest(http.MethodPost, "/v1/images", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", user)
		w := httptest.NewRecorder()
		e.h.ServeHTTP(w, req)
		return w
	}

	w := upload([]byte{0x89, 'P', 'N', 'G'})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "https://cdn.example/r1.jpg", decode[map[string]string](t, w)["url"])
	require.Len(t, e.images.got, 4)

	w = upload([]byte("not an image"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, "/v1/images", user, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImageRoute_TooLarge(t *testing.T) {
	e := newEnv(t, func(o *Options) { o.MaxUpload = 1 << 10 })

	body, ct := multipartImage(t, bytes.Repeat([]byte{0x89}, 4<<10))
	req := httptest.NewRequest(http.MethodPost, "/v1/images", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, uuid.Must(uuid.NewV4())))
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Equal(t, "image exceeds 1024 bytes", decode[map[string]string](t, w)["error"])
	require.Empty(t, e.images.got)
}

func TestMediaServed(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.media, "u1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.media, "u1", "a.jpg"), []byte("jpeg"), 0o644))

	w := e.do(t, http.MethodGet, "/media/u1/a.jpg", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "jpeg", w.Body.String())
}

func TestBookmarkRoutes(t *testing.T) {
	e := newEnv(t)
	user := bearer(t, uuid.Must(uuid.NewV4()))
	recipe := uuid.Must(uuid.NewV4()).String()

	w := e.do(t, http.MethodPost, "/v1/bookmarks/"+recipe+"/toggle", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(t, http.MethodPost, "/v1/bookmarks/not-a-uuid/toggle", user, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/v1/bookmarks/"+recipe+"/toggle", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[map[string]bool](t, w)["bookmarked"])

	w = e.do(t, http.MethodGet, "/v1/bookmarks/"+recipe, user, nil)
	require.True(t, decode[map[string]bool](t, w)["bookmarked"])
	w = e.do(t, http.MethodGet, "/v1/bookmarks", user, nil)
	require.Len(t, decode[map[string][]model.BookmarkRef](t, w)["bookmarks"], 1)

	w = e.do(t, http.MethodPost, "/v1/bookmarks/"+recipe+"/toggle", user, nil)
	require.False(t, decode[map[string]bool](t, w)["bookmarked"])
}

func TestBookmarkEvents(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	user := bearer(t, uuid.Must(uuid.NewV4()))
	recipe := uuid.Must(uuid.NewV4())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/bookmarks/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", user)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	events := bufio.NewScanner(resp.Body)
	nextData := func() []model.BookmarkRef {
		for events.Scan() {
			if line, ok := strings.CutPrefix(events.Text(), "data:"); ok {
				var list []model.BookmarkRef
				require.NoError(t, json.Unmarshal([]byte(line), &list))
				return list
			}
		}
		t.Fatalf("stream ended: %v", events.Err())
		return nil
	}

	require.Empty(t, nextData())

	toggle, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/bookmarks/"+recipe.String()+"/toggle", nil)
	require.NoError(t, err)
	toggle.Header.Set("Authorization", user)
	tr, err := srv.Client().Do(toggle)
	require.NoError(t, err)
	tr.Body.Close()

	list := nextData()
	require.Len(t, list, 1)
	require.Equal(t, recipe, list[0].RecipeID)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodGet, "/healthz", "", nil).Code)
}
