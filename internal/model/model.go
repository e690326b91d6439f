// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access/refresh tokens (refresh optional).
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// Profile is an account of the identity provider. Passwords are never stored in plaintext.
type Profile struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-profile salt
	CreatedAt time.Time
}

// Bookmark is a user's saved reference to a recipe. (UserID, RecipeID) is unique.
type Bookmark struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	RecipeID  uuid.UUID `json:"recipeId"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookmarkRef is the shape every bookmark store works with.
type BookmarkRef struct {
	RecipeID     uuid.UUID `json:"recipeId"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// Ref converts a stored bookmark into its store-neutral form.
func (b Bookmark) Ref() BookmarkRef {
	return BookmarkRef{RecipeID: b.RecipeID, BookmarkedAt: b.CreatedAt}
}
