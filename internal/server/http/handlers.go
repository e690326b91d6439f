package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/mapper"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/schema"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func badRequest(c *gin.Context, msg string) {
	_ = c.Error(fmt.Errorf("%w: %s", errs.ErrValidation, msg))
}

func (h *handlers) register(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "malformed body")
		return
	}
	id, err := h.d.Auth.Register(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userId": id.String()})
}

func (h *handlers) login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "malformed body")
		return
	}
	tok, p, err := h.d.Auth.LoginWithIP(c.Request.Context(), in.Username, in.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			errorResponse(c, http.StatusUnauthorized, "bad credentials")
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": tok.AccessToken,
		"expiresAt":   tok.ExpiresAt,
		"userId":      p.ID.String(),
	})
}

func (h *handlers) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.d.Recipes.Categories()})
}

func (h *handlers) listRecipes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recipes": h.d.Recipes.List(c.Request.Context())})
}

// filtersFromQuery reads ?search=&category=&maxCookingTime=&tag=&bookmarkedOnly=&ingredient=.
func filtersFromQuery(c *gin.Context) (model.RecipeFilters, error) {
	f := model.RecipeFilters{
		Search:      c.Query("search"),
		Category:    model.Category(c.Query("category")),
		Tag:         c.Query("tag"),
		Ingredients: c.QueryArray("ingredient"),
	}
	if v := c.Query("maxCookingTime"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: maxCookingTime must be a number", errs.ErrValidation)
		}
		f.MaxCookingTime = n
	}
	if v := c.Query("bookmarkedOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("%w: bookmarkedOnly must be true or false", errs.ErrValidation)
		}
		f.BookmarkedOnly = b
	}
	return f, schema.Filters(f)
}

func (h *handlers) searchRecipes(c *gin.Context) {
	f, err := filtersFromQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if _, ok := identity.UserID(c.Request.Context()); f.BookmarkedOnly && !ok {
		errorResponse(c, http.StatusUnauthorized, "not signed in")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": h.d.Recipes.Search(c.Request.Context(), f)})
}

func (h *handlers) listOwned(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recipes": h.d.Recipes.ListOwned(c.Request.Context())})
}

func (h *handlers) getRecipe(c *gin.Context) {
	r := h.d.Recipes.GetByID(c.Request.Context(), c.Param("id"))
	if r == nil {
		errorResponse(c, http.StatusNotFound, "recipe not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) createRecipe(c *gin.Context) {
	var in model.Recipe
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "malformed recipe")
		return
	}
	if err := schema.Recipe(in); err != nil {
		_ = c.Error(err)
		return
	}
	r := h.d.Recipes.Create(c.Request.Context(), in)
	if r == nil {
		errorResponse(c, http.StatusInternalServerError, "recipe could not be saved")
		return
	}
	c.JSON(http.StatusCreated, r)
}

// updateRecipe takes a camelCase partial body; unknown keys are ignored and
// null leaves a field unchanged.
func (h *handlers) updateRecipe(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "malformed patch")
		return
	}
	p, err := mapper.PatchFromJSON(body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if p.Empty() {
		badRequest(c, "nothing to update")
		return
	}
	if err := schema.Patch(p); err != nil {
		_ = c.Error(err)
		return
	}
	r := h.d.Recipes.Update(c.Request.Context(), c.Param("id"), p)
	if r == nil {
		errorResponse(c, http.StatusNotFound, "recipe not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) deleteRecipe(c *gin.Context) {
	if !h.d.Recipes.Delete(c.Request.Context(), c.Param("id")) {
		errorResponse(c, http.StatusNotFound, "recipe not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) importRecipe(c *gin.Context) {
	var in struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "malformed body")
		return
	}
	r, err := h.d.Importer.Import(c.Request.Context(), in.URL)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) || errors.Is(err, errs.ErrNotFound) {
			_ = c.Error(err)
			return
		}
		errorResponse(c, http.StatusBadGateway, "recipe page could not be fetched")
		return
	}
	c.JSON(http.StatusOK, r)
}

// uploadImage takes multipart field "image" and optional "recipeId".
func (h *handlers) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			errorResponse(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxUpload))
			return
		}
		badRequest(c, "image file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	url, err := h.d.Images.Upload(c.Request.Context(), c.PostForm("recipeId"), data)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func recipeParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("recipeId"))
	if err != nil {
		badRequest(c, "recipeId must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) listBookmarks(c *gin.Context) {
	list, err := h.d.Bookmarks.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": list})
}

func (h *handlers) bookmarkState(c *gin.Context) {
	id, ok := recipeParam(c)
	if !ok {
		return
	}
	on, err := h.d.Bookmarks.IsBookmarked(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": on})
}

func (h *handlers) toggleBookmark(c *gin.Context) {
	id, ok := recipeParam(c)
	if !ok {
		return
	}
	on, err := h.d.Bookmarks.Toggle(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": on})
}

// bookmarkEvents streams "bookmarks" events, current list first, until the
// client goes away.
func (h *handlers) bookmarkEvents(c *gin.Context) {
	ctx := c.Request.Context()
	ch, cancel, err := h.d.Bookmarks.Subscribe(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case list, ok := <-ch:
			if !ok {
				return false
			}
			if list == nil {
				list = []model.BookmarkRef{}
			}
			c.SSEvent("bookmarks", list)
			return true
		}
	})
}
