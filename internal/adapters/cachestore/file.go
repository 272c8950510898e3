package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// DefaultDir is where the file store keeps its entries.
const DefaultDir = "embeddings"

// FileStore keeps one JSON file per document, named <docId>.json and holding
// an array of vectors in paragraph order.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the entries.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(docID string) string {
	return filepath.Join(s.dir, url.PathEscape(docID)+".json")
}

// Load reads the entry for docID.
func (s *FileStore) Load(ctx context.Context, docID string) ([][]float32, error) {
	data, err := os.ReadFile(s.path(docID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, entities.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var embeddings [][]float32
	if err := json.Unmarshal(data, &embeddings); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrCacheCorrupt, docID, err)
	}
	if embeddings == nil {
		// "null" is not a valid entry
		return nil, fmt.Errorf("%w: %s: null entry", entities.ErrCacheCorrupt, docID)
	}
	return embeddings, nil
}

// Save writes the entry to a temporary file in the same directory and renames
// it into place, so readers see either the old entry or the new one.
func (s *FileStore) Save(ctx context.Context, docID string, embeddings [][]float32) error {
	if embeddings == nil {
		embeddings = [][]float32{}
	}
	data, err := json.Marshal(embeddings)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.path(docID)); err != nil {
		return fmt.Errorf("publishing cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for docID if present.
func (s *FileStore) Delete(ctx context.Context, docID string) error {
	err := os.Remove(s.path(docID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}
