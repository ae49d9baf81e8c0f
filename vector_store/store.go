package vector_store

import (
	"context"

	"github.com/solenne/bistoury/rag_type"
)

// Store is the write/read surface of the vector index. Implementations are
// expected to enforce the configured dimension on every entry at write time:
// an entry with the wrong vector length is rejected and reported, never
// truncated or padded.
type Store interface {
	// EnsureIndex is idempotent: it creates the collection if absent and
	// waits until the backend reports it ready. The wait is bounded by the
	// context and the implementation's own timeout; expiry surfaces
	// *rag_type.IndexNotReadyError rather than hanging.
	EnsureIndex(ctx context.Context) error

	// Upsert writes every valid entry and returns the number persisted.
	// When some entries are rejected the error is a
	// *rag_type.IndexWriteError listing them; valid siblings are still
	// written. A transport-level failure returns (0, err).
	Upsert(ctx context.Context, entries []rag_type.IndexEntry) (int, error)

	// Query returns up to topK entries ranked most similar first. An index
	// holding fewer than topK entries returns what it has.
	Query(ctx context.Context, vector []float32, topK int) ([]rag_type.QueryMatch, error)
}
