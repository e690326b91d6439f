package rpc

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/model"
)

type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      string    `json:"userId"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type RecipeResponse struct {
	Recipe model.Recipe `json:"recipe"`
}

type RecipeList struct {
	Recipes []model.Recipe `json:"recipes"`
}

type SearchRequest struct {
	Filters model.RecipeFilters `json:"filters"`
}

type CreateRequest struct {
	Recipe model.Recipe `json:"recipe"`
}

type UpdateRequest struct {
	ID    string            `json:"id"`
	Patch model.RecipePatch `json:"patch"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type CategoriesResponse struct {
	Categories []model.Category `json:"categories"`
}

type ImportRequest struct {
	URL string `json:"url"`
}

// UploadImageRequest carries the raw image; RecipeID may be empty for a draft.
type UploadImageRequest struct {
	RecipeID string `json:"recipeId,omitempty"`
	Data     []byte `json:"data"`
}

type UploadImageResponse struct {
	URL string `json:"url"`
}

type BookmarkRequest struct {
	RecipeID uuid.UUID `json:"recipeId"`
}

type BookmarkState struct {
	Bookmarked bool `json:"bookmarked"`
}

type BookmarkList struct {
	Bookmarks []model.BookmarkRef `json:"bookmarks"`
}
