package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

var (
	_ Store = (*FS)(nil)
	_ Store = (*GCS)(nil)
)

func TestImageKey(t *testing.T) {
	user := uuid.Must(uuid.NewV4())

	k, err := ImageKey(user, "r1")
	require.NoError(t, err)
	parts := strings.Split(k, "/")
	require.Len(t, parts, 3)
	require.Equal(t, user.String(), parts[0])
	require.Equal(t, "r1", parts[1])
	require.True(t, strings.HasSuffix(parts[2], ".jpg"))

	k2, err := ImageKey(user, "r1")
	require.NoError(t, err)
	require.NotEqual(t, k, k2)

	for _, bad := range []string{"", "..", "a/b", " / "} {
		k, err := ImageKey(user, bad)
		require.NoError(t, err)
		require.Equal(t, "draft", strings.Split(k, "/")[1], bad)
	}
}

func TestKeyFromURL(t *testing.T) {
	const prefix = "https://storage.googleapis.com/bucket/"
	cases := []struct {
		url string
		key string
		ok  bool
	}{
		{prefix + "u/r/x.jpg", "u/r/x.jpg", true},
		{prefix + "u/r/x.jpg?v=2", "u/r/x.jpg", true},
		{"https://storage.googleapis.com/other/u/r/x.jpg", "", false},
		{"https://example.com/x.jpg", "", false},
		{prefix, "", false},
		{prefix + "u/../../etc/passwd", "", false},
		{prefix + "u//x.jpg", "", false},
	}
	for _, tc := range cases {
		key, ok := keyFromURL(tc.url, prefix)
		require.Equal(t, tc.ok, ok, tc.url)
		require.Equal(t, tc.key, key, tc.url)
	}
}

func TestFS_PutDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFS(root, "http://localhost:8080/media/")
	require.NoError(t, err)

	url, err := s.Put(ctx, "u/r/a.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/media/u/r/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(root, "u", "r", "a.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), data)

	require.NoError(t, s.DeleteByURL(ctx, url))
	_, err = os.Stat(filepath.Join(root, "u", "r", "a.jpg"))
	require.True(t, os.IsNotExist(err))

	// already gone, foreign URL
	require.NoError(t, s.DeleteByURL(ctx, url))
	require.NoError(t, s.DeleteByURL(ctx, "https://elsewhere.example/u/r/a.jpg"))

	_, err = s.Put(ctx, "../escape.jpg", "image/jpeg", []byte("x"))
	require.Error(t, err)
}

func TestGCS_DeleteOutsideBucketIsNoop(t *testing.T) {
	ctx := context.Background()
	g, err := NewGCS(ctx, GCSConfig{Bucket: "recipes"}, option.WithoutAuthentication())
	require.NoError(t, err)
	defer g.Close()

	require.Equal(t, DefaultGCSBaseURL+"/recipes/", g.prefix)
	require.NoError(t, g.DeleteByURL(ctx, "https://cdn.example.com/recipes/u/r/x.jpg"))
	require.NoError(t, g.DeleteByURL(ctx, ""))
}

func TestNewGCS_Validation(t *testing.T) {
	_, err := NewGCS(context.Background(), GCSConfig{})
	require.Error(t, err)
	_, err = NewGCS(context.Background(), GCSConfig{Bucket: "b", CredentialsBase64: "%%%"})
	require.Error(t, err)
}
