package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/solenne/bistoury/rag_type"
)

// Store is an in-process vector index using brute-force cosine similarity.
// It backs tests and local development runs where no hosted index is
// configured.
type Store struct {
	mu        sync.RWMutex
	dimension int
	ready     bool
	entries   []rag_type.IndexEntry
}

func NewStore(dimension int) *Store {
	return &Store{dimension: dimension}
}

func (s *Store) EnsureIndex(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

func (s *Store) Upsert(ctx context.Context, entries []rag_type.IndexEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, &rag_type.IndexNotReadyError{Index: "memory"}
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
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.entries = append(s.entries, e)
		written++
	}

	if len(failures) > 0 {
		return written, &rag_type.IndexWriteError{Written: written, Failures: failures}
	}
	return written, nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]rag_type.QueryMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, &rag_type.IndexNotReadyError{Index: "memory"}
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 1
	}

	matches := make([]rag_type.QueryMatch, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, rag_type.QueryMatch{Entry: e, Score: cosine(e.Vector, vector)})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
