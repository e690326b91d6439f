// Package objectstore keeps recipe images in a bucket addressed by public URL.
package objectstore

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// Store uploads objects and deletes them by the URL Put returned.
type Store interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// DeleteByURL removes the object behind url. A URL outside the store,
	// or an object that no longer exists, is a successful no-op.
	DeleteByURL(ctx context.Context, url string) error
}

// ImageKey returns a fresh "<user>/<recipe>/<random>.jpg" object key.
func ImageKey(userID uuid.UUID, recipeID string) (string, error) {
	r, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	if recipeID = strings.Trim(recipeID, "/ "); recipeID == "" || strings.Contains(recipeID, "/") || recipeID == ".." {
		recipeID = "draft"
	}
	return userID.String() + "/" + recipeID + "/" + r.String() + ".jpg", nil
}

// keyFromURL strips prefix from url. ok is false for URLs outside prefix or
// keys that try to escape it.
func keyFromURL(url, prefix string) (string, bool) {
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return key, true
}
