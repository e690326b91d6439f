package objectstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// DefaultGCSBaseURL is the public host of Cloud Storage objects.
const DefaultGCSBaseURL = "https://storage.googleapis.com"

// GCSConfig selects a bucket and how to authenticate against it.
type GCSConfig struct {
	Bucket string
	// BaseURL is the public URL prefix before the bucket name.
	BaseURL string
	// CredentialsBase64 is a base64 service-account JSON; empty uses
	// application default credentials.
	CredentialsBase64 string
}

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS opens a Cloud Storage client for cfg.Bucket.
func NewGCS(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: empty bucket")
	}
	if cfg.CredentialsBase64 != "" {
		creds, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("gcs: decode credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGCSBaseURL
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: base + "/" + cfg.Bucket + "/"}, nil
}

// Put uploads data and returns its public URL.
func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: close %s: %w", key, err)
	}
	return g.prefix + key, nil
}

// DeleteByURL removes the object behind url if it lives in this bucket.
func (g *GCS) DeleteByURL(ctx context.Context, url string) error {
	key, ok := keyFromURL(url, g.prefix)
	if !ok {
		return nil
	}
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (g *GCS) Close() error { return g.client.Close() }
