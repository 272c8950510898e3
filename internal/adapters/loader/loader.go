// Package loader provides document loading adapters.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// DefaultMaxBytes caps how much of a file is read into memory.
const DefaultMaxBytes = 64 << 20

// FileLoader reads documents from the local filesystem. Extraction is left
// to the parser registered for the extension.
type FileLoader struct {
	extensions []string
	maxBytes   int64
}

// NewFileLoader creates a loader accepting the given extensions (with the
// leading dot). No extensions means .txt, .md, .markdown and .pdf.
func NewFileLoader(extensions ...string) *FileLoader {
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md", ".markdown", ".pdf"}
	}
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		normalized[i] = normalizeExt(ext)
	}
	return &FileLoader{
		extensions: normalized,
		maxBytes:   DefaultMaxBytes,
	}
}

// Load reads the document at path and returns its base name and raw bytes.
func (l *FileLoader) Load(ctx context.Context, path string) (string, []byte, error) {
	name := filepath.Base(path)
	if !slices.Contains(l.extensions, strings.ToLower(filepath.Ext(path))) {
		return "", nil, fmt.Errorf("%w: %q", entities.ErrUnsupportedFormat, name)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > l.maxBytes {
		return "", nil, fmt.Errorf("%s is %d bytes, limit is %d", name, info.Size(), l.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, l.maxBytes))
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return name, data, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *FileLoader) SupportedExtensions() []string {
	return slices.Clone(l.extensions)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
