package cachestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// testStoreContract exercises the behaviour every backend must share.
func testStoreContract(t *testing.T, store ports.EmbeddingStore) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		if _, err := store.Load(ctx, "absent.txt"); !errors.Is(err, entities.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("round trip keeps order", func(t *testing.T) {
		want := [][]float32{{1, 0, 0.5}, {0, 1, -0.25}, {0.125, 0.125, 3}}
		if err := store.Save(ctx, "doc.txt", want); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := store.Load(ctx, "doc.txt")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d vectors, got %d", len(want), len(got))
		}
		for i := range want {
			if !slices.Equal(got[i], want[i]) {
				t.Errorf("vector %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		store.Save(ctx, "replace.txt", [][]float32{{1}, {2}, {3}})
		if err := store.Save(ctx, "replace.txt", [][]float32{{9}}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := store.Load(ctx, "replace.txt")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(got) != 1 || got[0][0] != 9 {
			t.Errorf("expected replaced entry, got %v", got)
		}
	})

	t.Run("empty entry is a hit", func(t *testing.T) {
		if err := store.Save(ctx, "empty.txt", nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := store.Load(ctx, "empty.txt")
		if err != nil {
			t.Fatalf("empty entry should load, got %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no vectors, got %d", len(got))
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store.Save(ctx, "gone.txt", [][]float32{{1}})
		if err := store.Delete(ctx, "gone.txt"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := store.Delete(ctx, "gone.txt"); err != nil {
			t.Errorf("second delete failed: %v", err)
		}
		if _, err := store.Load(ctx, "gone.txt"); !errors.Is(err, entities.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss after delete, got %v", err)
		}
	})

	t.Run("keys with separators", func(t *testing.T) {
		id := "reports/2024 q1.pdf"
		if err := store.Save(ctx, id, [][]float32{{4, 2}}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, err := store.Load(ctx, id); err != nil {
			t.Errorf("load failed: %v", err)
		}
		store.Delete(ctx, id)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := [][]float32{{1, 2}}
	store.Save(ctx, "doc", in)
	in[0][0] = 99

	got, _ := store.Load(ctx, "doc")
	got[0][1] = 99

	again, _ := store.Load(ctx, "doc")
	if again[0][0] != 1 || again[0][1] != 2 {
		t.Errorf("stored entry was mutated: %v", again)
	}
}

func TestFileStore_Contract(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	testStoreContract(t, store)
}

func TestFileStore_EntryFormat(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)

	store.Save(context.Background(), "notes.txt", [][]float32{{1, 2}, {3, 4}})

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt.json"))
	if err != nil {
		t.Fatalf("entry file missing: %v", err)
	}
	if string(data) != "[[1,2],[3,4]]" {
		t.Errorf("unexpected entry content %s", data)
	}
}

func TestFileStore_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)

	for name, content := range map[string]string{
		"truncated.txt": "[[1,2],[3",
		"null.txt":      "null",
		"wrong.txt":     `{"a":1}`,
	} {
		os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0644)
		if _, err := store.Load(context.Background(), name); !errors.Is(err, entities.ErrCacheCorrupt) {
			t.Errorf("%s: expected ErrCacheCorrupt, got %v", name, err)
		}
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	ctx := context.Background()

	for range 3 {
		store.Save(ctx, "doc.txt", [][]float32{{1}})
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "doc.txt.json" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only the entry file, got %v", names)
	}
}

func TestFileStore_DefaultDir(t *testing.T) {
	t.Chdir(t.TempDir())

	store, err := NewFileStore("")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if store.Dir() != "embeddings" {
		t.Errorf("expected default dir, got %s", store.Dir())
	}
	if _, err := os.Stat("embeddings"); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	testStoreContract(t, store)
}

func TestSQLiteStore_MissingVectorIsCorrupt(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	store.Save(ctx, "doc", [][]float32{{1}, {2}})
	if _, err := store.db.Exec("DELETE FROM cache_vectors WHERE doc_id = 'doc' AND idx = 1"); err != nil {
		t.Fatalf("tampering failed: %v", err)
	}

	if _, err := store.Load(ctx, "doc"); !errors.Is(err, entities.ErrCacheCorrupt) {
		t.Errorf("expected ErrCacheCorrupt, got %v", err)
	}
}

func TestSQLiteStore_EntryCount(t *testing.T) {
	store, _ := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	defer store.Close()
	ctx := context.Background()

	store.Save(ctx, "a", [][]float32{{1}})
	store.Save(ctx, "b", [][]float32{{1}})
	store.Delete(ctx, "a")

	count, err := store.EntryCount(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry, got %d", count)
	}
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DOCCHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCCHAT_TEST_POSTGRES_DSN not set")
	}

	store, err := NewPostgresStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	testStoreContract(t, store)
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !slices.Equal(in, out) {
		t.Errorf("got %v, want %v", out, in)
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("should reject a blob that is not a multiple of 4 bytes")
	}
}
