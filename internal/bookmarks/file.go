package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebox/internal/model"
)

// FileKey is the key the bookmark list is stored under in the local file.
const FileKey = "recipe-bookmarks"

// LocalScope is the hub scope used for file-backed bookmarks.
const LocalScope = "local"

// FileStore keeps bookmarks in a local JSON file for use without a session.
// Other keys in the file are preserved.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) load() (map[string]json.RawMessage, []model.BookmarkRef, error) {
	doc := map[string]json.RawMessage{}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, []model.BookmarkRef{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, nil, fmt.Errorf("bookmarks file %s: %w", s.path, err)
		}
	}
	refs := []model.BookmarkRef{}
	if raw, ok := doc[FileKey]; ok {
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, nil, fmt.Errorf("bookmarks file %s: %w", s.path, err)
		}
	}
	return doc, refs, nil
}

func (s *FileStore) save(doc map[string]json.RawMessage, refs []model.BookmarkRef) error {
	raw, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	doc[FileKey] = raw
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bookmarks-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// List returns bookmarks, newest first.
func (s *FileStore) List(_ context.Context) ([]model.BookmarkRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, refs, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].BookmarkedAt.After(refs[j].BookmarkedAt) })
	return refs, nil
}

func (s *FileStore) Contains(_ context.Context, recipeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, refs, err := s.load()
	if err != nil {
		return false, err
	}
	return indexOf(refs, recipeID) >= 0, nil
}

// Add records a bookmark; an existing one is left as is.
func (s *FileStore) Add(_ context.Context, recipeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, refs, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(refs, recipeID) >= 0 {
		return nil
	}
	refs = append(refs, model.BookmarkRef{RecipeID: recipeID, BookmarkedAt: s.now().UTC()})
	return s.save(doc, refs)
}

func (s *FileStore) Remove(_ context.Context, recipeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, refs, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(refs, recipeID)
	if i < 0 {
		return nil
	}
	refs = append(refs[:i], refs[i+1:]...)
	return s.save(doc, refs)
}

func indexOf(refs []model.BookmarkRef, id uuid.UUID) int {
	for i, r := range refs {
		if r.RecipeID == id {
			return i
		}
	}
	return -1
}
