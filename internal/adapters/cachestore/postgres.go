package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// PostgresStore keeps entries in PostgreSQL using the pgvector extension.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connString and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS cache_entries (
			doc_id TEXT PRIMARY KEY,
			vector_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS cache_vectors (
			doc_id TEXT NOT NULL REFERENCES cache_entries(doc_id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			embedding vector NOT NULL,
			PRIMARY KEY (doc_id, idx)
		);
	`)
	return err
}

// Load reads the entry for docID in paragraph order.
func (s *PostgresStore) Load(ctx context.Context, docID string) ([][]float32, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT vector_count FROM cache_entries WHERE doc_id = $1`, docID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT idx, embedding FROM cache_vectors WHERE doc_id = $1 ORDER BY idx`,
		docID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	embeddings := make([][]float32, 0, count)
	for rows.Next() {
		var idx int
		var vec pgvector.Vector
		if err := rows.Scan(&idx, &vec); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrCacheCorrupt, docID, err)
		}
		if idx != len(embeddings) {
			return nil, fmt.Errorf("%w: %s: missing vector %d", entities.ErrCacheCorrupt, docID, len(embeddings))
		}
		embeddings = append(embeddings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}

	if len(embeddings) != count {
		return nil, fmt.Errorf("%w: %s: expected %d vectors, found %d", entities.ErrCacheCorrupt, docID, count, len(embeddings))
	}
	return embeddings, nil
}

// Save replaces the entry for docID in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, docID string, embeddings [][]float32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM cache_entries WHERE doc_id = $1`, docID)
	batch.Queue(`INSERT INTO cache_entries (doc_id, vector_count) VALUES ($1, $2)`, docID, len(embeddings))
	for i, vec := range embeddings {
		batch.Queue(
			`INSERT INTO cache_vectors (doc_id, idx, embedding) VALUES ($1, $2, $3)`,
			docID, i, pgvector.NewVector(vec),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to write cache entry (statement %d): %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes the entry for docID. Vectors go with it via ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, docID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE doc_id = $1`, docID)
	return err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
