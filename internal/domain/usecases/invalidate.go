package usecases

import (
	"context"
	"log"
	"path/filepath"

	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// CacheInvalidator drops cache entries for files that change on disk.
// Under KeyByContent an edited file already gets a new key, so only
// KeyByFilename entries are removed.
type CacheInvalidator struct {
	watcher ports.FileWatcher
	cache   *EmbeddingCache
}

// NewCacheInvalidator creates a CacheInvalidator.
func NewCacheInvalidator(watcher ports.FileWatcher, cache *EmbeddingCache) *CacheInvalidator {
	return &CacheInvalidator{
		watcher: watcher,
		cache:   cache,
	}
}

// Run watches dir until ctx is done or the watcher closes. It returns the
// number of entries invalidated.
func (ci *CacheInvalidator) Run(ctx context.Context, dir string) (int, error) {
	events, err := ci.watcher.Watch(ctx, dir)
	if err != nil {
		return 0, err
	}

	invalidated := 0
	for event := range events {
		if event.Operation == ports.FileCreated {
			continue
		}
		if ci.cache.policy == KeyByContent {
			log.Printf("[DEBUG] Ignoring %s %s: content-keyed cache", event.Operation, event.Path)
			continue
		}
		if err := ci.cache.Invalidate(ctx, filepath.Base(event.Path)); err != nil {
			log.Printf("[ERROR] %v", err)
			continue
		}
		invalidated++
	}
	return invalidated, nil
}
