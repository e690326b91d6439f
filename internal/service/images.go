package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/objectstore"
)

// Compressor turns an uploaded image into a bounded JPEG.
type Compressor interface {
	Compress(ctx context.Context, src []byte) ([]byte, error)
}

// ImageService uploads recipe photos for the authenticated user.
type ImageService struct {
	comp  Compressor
	store objectstore.Store
	log   *zap.Logger
}

// NewImageService wires compression to an object store.
func NewImageService(comp Compressor, store objectstore.Store, log *zap.Logger) *ImageService {
	return &ImageService{comp: comp, store: store, log: log}
}

// Upload compresses src and stores it under the caller's prefix for the
// recipe. recipeID may be empty for a recipe that is not saved yet.
func (s *ImageService) Upload(ctx context.Context, recipeID string, src []byte) (string, error) {
	owner, ok := identity.UserID(ctx)
	if !ok {
		return "", errs.ErrUnauthorized
	}
	if len(src) == 0 {
		return "", fmt.Errorf("%w: empty image", errs.ErrValidation)
	}
	out, err := s.comp.Compress(ctx, src)
	if err != nil {
		return "", err
	}
	key, err := objectstore.ImageKey(owner, recipeID)
	if err != nil {
		return "", err
	}
	url, err := s.store.Put(ctx, key, "image/jpeg", out)
	if err != nil {
		s.log.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	s.log.Info("image uploaded", zap.String("key", key),
		zap.Int("input_bytes", len(src)), zap.Int("stored_bytes", len(out)))
	return url, nil
}

// DeleteByURL removes an image; it makes ImageService an ImageRemover.
func (s *ImageService) DeleteByURL(ctx context.Context, url string) error {
	return s.store.DeleteByURL(ctx, url)
}
