package usecases

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// NewSession starts an empty conversation that will be answered by model.
func NewSession(model string) entities.Session {
	return entities.Session{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: time.Now(),
	}
}

// IngestUseCase turns uploaded bytes into a segmented, embedded Document
// bound to a session.
type IngestUseCase struct {
	parser     ports.DocumentParser
	cache      *EmbeddingCache
	embedModel string
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(parser ports.DocumentParser, cache *EmbeddingCache, embedModel string) *IngestUseCase {
	return &IngestUseCase{
		parser:     parser,
		cache:      cache,
		embedModel: embedModel,
	}
}

// Ingest parses, segments, and embeds data, and returns sess bound to the
// resulting document. If sess already holds a document with the same
// identity it is returned unchanged.
func (uc *IngestUseCase) Ingest(ctx context.Context, sess entities.Session, name string, data []byte) (entities.Session, error) {
	key := uc.cache.Key(name, data)
	if sess.Document != nil && sess.Document.ID == key {
		return sess, nil
	}

	text, err := uc.parser.Parse(ctx, data, name)
	if err != nil {
		return sess, fmt.Errorf("parsing %q: %w", name, err)
	}

	paragraphs := Segment(text)
	embeddings, err := uc.cache.Get(ctx, key, uc.embedModel, paragraphs)
	if err != nil {
		return sess, err
	}

	log.Printf("[INFO] Loaded %q: %d paragraphs", name, len(paragraphs))
	return sess.WithDocument(&entities.Document{
		ID:         key,
		Name:       name,
		Paragraphs: paragraphs,
		Embeddings: embeddings,
	}), nil
}

// Invalidate drops the cached embeddings for a document.
func (uc *IngestUseCase) Invalidate(ctx context.Context, name string, data []byte) error {
	return uc.cache.Invalidate(ctx, uc.cache.Key(name, data))
}
