package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// KeyPolicy decides how a document name maps to a cache key.
type KeyPolicy string

const (
	// KeyByFilename reuses an entry for any file with the same name, even if
	// its content changed.
	KeyByFilename KeyPolicy = "filename"

	// KeyByContent appends a content digest so edited files get a fresh entry.
	KeyByContent KeyPolicy = "content"
)

// EmbeddingCache maps a document key to its embedding sequence, computing
// and persisting it on first use.
type EmbeddingCache struct {
	embedder ports.EmbeddingService
	store    ports.EmbeddingStore
	policy   KeyPolicy
	group    singleflight.Group
}

// NewEmbeddingCache creates an EmbeddingCache backed by store.
func NewEmbeddingCache(embedder ports.EmbeddingService, store ports.EmbeddingStore, policy KeyPolicy) *EmbeddingCache {
	if policy == "" {
		policy = KeyByFilename
	}
	return &EmbeddingCache{
		embedder: embedder,
		store:    store,
		policy:   policy,
	}
}

// Key derives the cache key for a document according to the cache policy.
func (c *EmbeddingCache) Key(name string, data []byte) string {
	if c.policy != KeyByContent {
		return name
	}
	sum := sha256.Sum256(data)
	return name + "-" + hex.EncodeToString(sum[:8])
}

// Get returns the embeddings for docID. A stored entry is returned as is,
// without checking it against paragraphs. On a miss, every paragraph is
// embedded in order and the full sequence is saved before returning; any
// embedding failure aborts without saving. Concurrent calls for the same
// docID share one fill.
func (c *EmbeddingCache) Get(ctx context.Context, docID, model string, paragraphs []string) ([][]float32, error) {
	v, err, shared := c.group.Do(docID, func() (any, error) {
		return c.loadOrFill(ctx, docID, model, paragraphs)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("[DEBUG] Shared in-flight embeddings for %q", docID)
	}
	return cloneVectors(v.([][]float32)), nil
}

// cloneVectors copies every vector so callers sharing a fill, or the store
// behind it, never alias each other.
func cloneVectors(vectors [][]float32) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		out[i] = slices.Clone(v)
	}
	return out
}

// Invalidate removes the stored entry for docID.
func (c *EmbeddingCache) Invalidate(ctx context.Context, docID string) error {
	if err := c.store.Delete(ctx, docID); err != nil {
		return fmt.Errorf("invalidating %q: %w", docID, err)
	}
	log.Printf("[INFO] Invalidated embeddings for %q", docID)
	return nil
}

func (c *EmbeddingCache) loadOrFill(ctx context.Context, docID, model string, paragraphs []string) ([][]float32, error) {
	cached, err := c.store.Load(ctx, docID)
	switch {
	case err == nil:
		if len(cached) != len(paragraphs) {
			log.Printf("[WARN] Cached embeddings for %q have %d entries, document has %d paragraphs", docID, len(cached), len(paragraphs))
		}
		log.Printf("[DEBUG] Embedding cache hit for %q", docID)
		return cached, nil
	case errors.Is(err, entities.ErrCacheCorrupt):
		log.Printf("[WARN] Recomputing corrupt cache entry for %q: %v", docID, err)
	case errors.Is(err, entities.ErrCacheMiss):
		log.Printf("[DEBUG] Embedding cache miss for %q", docID)
	default:
		return nil, fmt.Errorf("loading embeddings for %q: %w", docID, err)
	}

	embeddings := make([][]float32, len(paragraphs))
	for i, p := range paragraphs {
		emb, err := c.embedder.Embed(ctx, model, p)
		if err != nil {
			return nil, fmt.Errorf("%w: paragraph %d of %q: %w", entities.ErrEmbeddingService, i, docID, err)
		}
		embeddings[i] = emb
	}

	if err := c.store.Save(ctx, docID, embeddings); err != nil {
		return nil, fmt.Errorf("saving embeddings for %q: %w", docID, err)
	}
	log.Printf("[INFO] Cached %d embeddings for %q", len(embeddings), docID)
	return embeddings, nil
}
