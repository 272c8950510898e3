// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text with the given model.
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// ChatService generates streamed responses from a language model.
type ChatService interface {
	// ChatStream opens a streaming chat call with the exact message list.
	// The returned channel is closed when the stream ends; the adapter must stop
	// sending once ctx is cancelled.
	ChatStream(ctx context.Context, model string, messages []entities.ChatMessage) (<-chan StreamToken, error)
}

// EmbeddingStore is the durable backend of the embedding cache.
type EmbeddingStore interface {
	// Load returns the stored sequence for docID, entities.ErrCacheMiss when
	// absent, or entities.ErrCacheCorrupt when unreadable.
	Load(ctx context.Context, docID string) ([][]float32, error)

	// Save persists the whole sequence for docID. Readers never observe a
	// partially written entry.
	Save(ctx context.Context, docID string, embeddings [][]float32) error

	// Delete removes the entry for docID. Deleting a missing entry is not an error.
	Delete(ctx context.Context, docID string) error
}

// DocumentParser extracts text from document bytes.
type DocumentParser interface {
	// Parse extracts text content from document bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf", "txt").
	SupportedFormats() []string
}

// DocumentLoader reads a document from disk and returns its name and raw bytes.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (name string, data []byte, err error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// StreamToken represents a single fragment in a streaming LLM response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
