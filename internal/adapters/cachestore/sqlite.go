package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// DefaultSQLitePath is the database file used when none is configured.
const DefaultSQLitePath = "embeddings/cache.db"

// SQLiteStore keeps entries in a SQLite database. A header row per document
// records the vector count so empty and truncated entries can be told apart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		doc_id TEXT PRIMARY KEY,
		vector_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS cache_vectors (
		doc_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (doc_id, idx)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the entry for docID in paragraph order.
func (s *SQLiteStore) Load(ctx context.Context, docID string) ([][]float32, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT vector_count FROM cache_entries WHERE doc_id = ?", docID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("querying cache entry: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT idx, embedding FROM cache_vectors WHERE doc_id = ? ORDER BY idx", docID)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	embeddings := make([][]float32, 0, count)
	for rows.Next() {
		var idx int
		var blob []byte
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if idx != len(embeddings) {
			return nil, fmt.Errorf("%w: %s: missing vector %d", entities.ErrCacheCorrupt, docID, len(embeddings))
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrCacheCorrupt, docID, err)
		}
		embeddings = append(embeddings, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}

	if len(embeddings) != count {
		return nil, fmt.Errorf("%w: %s: expected %d vectors, found %d", entities.ErrCacheCorrupt, docID, count, len(embeddings))
	}
	return embeddings, nil
}

// Save replaces the entry for docID in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, docID string, embeddings [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_vectors WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("clearing vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (doc_id, vector_count) VALUES (?, ?)",
		docID, len(embeddings),
	); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO cache_vectors (doc_id, idx, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, vec := range embeddings {
		if _, err := stmt.ExecContext(ctx, docID, i, encodeVector(vec)); err != nil {
			return fmt.Errorf("inserting vector %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Delete removes the entry for docID.
func (s *SQLiteStore) Delete(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_vectors WHERE doc_id = ?", docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE doc_id = ?", docID); err != nil {
		return err
	}
	return tx.Commit()
}

// EntryCount returns the number of cached documents.
func (s *SQLiteStore) EntryCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
