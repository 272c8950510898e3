package entities

import "errors"

// Error taxonomy shared by usecases and adapters. Adapters wrap the underlying
// cause so callers can match with errors.Is.
var (
	// ErrDocumentUnreadable means the uploaded bytes could not be decoded or extracted.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrUnsupportedFormat means no parser handles the document's extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmbeddingService means the embedding model call failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService means the chat model call failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrCacheMiss means no cache entry exists for a document.
	ErrCacheMiss = errors.New("embedding cache miss")

	// ErrCacheCorrupt means a stored cache entry exists but cannot be decoded.
	ErrCacheCorrupt = errors.New("embedding cache entry corrupt")

	// ErrDegenerateVector means a similarity was requested against a zero-norm
	// or mismatched vector.
	ErrDegenerateVector = errors.New("degenerate vector")

	// ErrSessionBusy means a question arrived while the previous answer was still streaming.
	ErrSessionBusy = errors.New("session is busy")

	// ErrNoDocument means a document operation was requested on a session without one.
	ErrNoDocument = errors.New("session has no document")
)
