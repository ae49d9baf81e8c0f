package pgvector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/solenne/bistoury/rag_type"
)

// Store keeps index entries in a Postgres table with a pgvector embedding
// column. The seq column preserves insertion order so equal-distance rows
// rank deterministically.
type Store struct {
	db        *pgxpool.Pool
	dimension int
	ready     bool
	logger    *slog.Logger
}

func NewStore(db *pgxpool.Pool, dimension int, logger *slog.Logger) *Store {
	return &Store{db: db, dimension: dimension, logger: logger}
}

func (s *Store) EnsureIndex(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}

	createSQL := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS chunks (
            id uuid PRIMARY KEY,
            seq bigserial,
            source text NOT NULL,
            chunk_index int NOT NULL,
            content text NOT NULL,
            embedding vector(%d) NOT NULL
        )`, s.dimension)

	if _, err := s.db.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	s.ready = true
	return nil
}

func (s *Store) Upsert(ctx context.Context, entries []rag_type.IndexEntry) (int, error) {
	if !s.ready {
		return 0, &rag_type.IndexNotReadyError{Index: "chunks"}
	}

	written := 0
	var failures []rag_type.EntryFailure
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			failures = append(failures, rag_type.EntryFailure{
				ID:         e.ID,
				ChunkIndex: e.ChunkIndex,
				Reason:     fmt.Sprintf("vector dimension %d, index expects %d", len(e.Vector), s.dimension),
			})
			continue
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}

		query := `INSERT INTO chunks (id, source, chunk_index, content, embedding)
                  VALUES ($1, $2, $3, $4, $5)
                  ON CONFLICT (id) DO NOTHING`
		_, err := s.db.Exec(ctx, query, id, e.Source, e.ChunkIndex, e.Text, pgvec.NewVector(e.Vector))
		if err != nil {
			s.logger.Error("Failed to store chunk",
				slog.String("source", e.Source),
				slog.Int("chunk_index", e.ChunkIndex),
				slog.String("error", err.Error()))
			failures = append(failures, rag_type.EntryFailure{
				ID:         id,
				ChunkIndex: e.ChunkIndex,
				Reason:     err.Error(),
			})
			continue
		}
		written++
	}

	if len(failures) > 0 {
		return written, &rag_type.IndexWriteError{Written: written, Failures: failures}
	}
	return written, nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]rag_type.QueryMatch, error) {
	if !s.ready {
		return nil, &rag_type.IndexNotReadyError{Index: "chunks"}
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 1
	}

	query := `SELECT id, source, chunk_index, content, 1 - (embedding <=> $1) AS score
              FROM chunks
              ORDER BY embedding <=> $1, seq
              LIMIT $2`
	rows, err := s.db.Query(ctx, query, pgvec.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []rag_type.QueryMatch
	for rows.Next() {
		var m rag_type.QueryMatch
		if err := rows.Scan(&m.Entry.ID, &m.Entry.Source, &m.Entry.ChunkIndex, &m.Entry.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
