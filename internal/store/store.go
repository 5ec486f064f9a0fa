package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/quailhollow/docsearch/pkg/models"
)

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// PassageStore defines the methods that the Store must implement.
type PassageStore interface {
	Migrate(ctx context.Context, dim int) error
	UpsertPassage(ctx context.Context, p models.Passage) error
	QueryNearest(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS passages (
  source     TEXT NOT NULL,
  doc_id     TEXT NOT NULL,
  chunk_id   INT  NOT NULL,
  content    TEXT NOT NULL,
  embedding  vector(%d),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
  PRIMARY KEY (source, doc_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS passages_embedding_idx
  ON passages USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// UpsertPassage writes or overwrites the row keyed by
// (source, doc_id, chunk_id). The write is a single statement so two
// concurrent ingestions of the same key cannot lose an update.
func (s *Store) UpsertPassage(ctx context.Context, p models.Passage) error {
	var emb any
	if p.Embedding != nil {
		emb = pgvector.NewVector(p.Embedding)
	} else {
		emb = (*pgvector.Vector)(nil)
	}

	const q = `
		INSERT INTO passages (source, doc_id, chunk_id, content, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (source, doc_id, chunk_id) DO UPDATE SET
			content    = EXCLUDED.content,
			embedding  = EXCLUDED.embedding,
			updated_at = now();`

	if _, err := s.pool.Exec(ctx, q, p.Source, p.DocID, p.ChunkID, p.Content, emb); err != nil {
		return fmt.Errorf("upsert %s:%s chunk %d: %w", p.Source, p.DocID, p.ChunkID, err)
	}
	return nil
}

// QueryNearest returns up to k passages in ascending cosine distance to
// vec. Ties break on the primary key so result order is deterministic.
func (s *Store) QueryNearest(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	const q = `
		SELECT source, doc_id, chunk_id, content,
		       embedding <=> $1 AS score
		FROM passages
		ORDER BY score, source, doc_id, chunk_id
		LIMIT $2;`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.Source, &r.DocID, &r.ChunkID, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("query nearest: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
