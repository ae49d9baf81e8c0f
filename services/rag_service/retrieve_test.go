package rag_service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/bistoury/rag_type"
	"github.com/solenne/bistoury/vector_store/memory"
)

func seededRetriever(t *testing.T, topK int) *Retriever {
	t.Helper()

	embedder := newFakeEmbedder(4)
	store := memory.NewStore(4)
	ctx := context.Background()
	require.NoError(t, store.EnsureIndex(ctx))

	texts := []string{"keep the wound dry", "change dressing daily", "call if fever"}
	entries := make([]rag_type.IndexEntry, 0, len(texts))
	for i, text := range texts {
		vectors, err := embedder.Embed(ctx, []string{text})
		require.NoError(t, err)
		entries = append(entries, rag_type.IndexEntry{
			Vector:     vectors[0],
			Text:       text,
			Source:     "aftercare.pdf",
			ChunkIndex: i,
		})
	}
	_, err := store.Upsert(ctx, entries)
	require.NoError(t, err)

	return NewRetriever(embedder, store, topK, testLogger())
}

func TestQueryReturnsClosestChunkFirst(t *testing.T) {
	retriever := seededRetriever(t, 2)

	matches, err := retriever.Query(context.Background(), "change dressing daily", 2)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "change dressing daily", matches[0].Entry.Text)
	assert.Equal(t, 1, matches[0].Entry.ChunkIndex)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestQueryZeroTopKUsesDefault(t *testing.T) {
	retriever := seededRetriever(t, 1)

	matches, err := retriever.Query(context.Background(), "keep the wound dry", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRetrieveContextJoinsMatches(t *testing.T) {
	retriever := seededRetriever(t, 2)

	// The fake embedder assigns each distinct text its own axis, so the
	// exact query scores 1.0 and everything else ties below it.
	text, err := retriever.RetrieveContext(context.Background(), "call if fever")
	require.NoError(t, err)

	assert.Contains(t, text, "call if fever")
	assert.Contains(t, text, "\n\n")
}

func TestQueryPropagatesEmbeddingFailure(t *testing.T) {
	embedder := newFakeEmbedder(4)
	embedder.failOn["down"] = true
	store := memory.NewStore(4)
	require.NoError(t, store.EnsureIndex(context.Background()))

	retriever := NewRetriever(embedder, store, 1, testLogger())
	_, err := retriever.Query(context.Background(), "down", 1)

	var embErr *rag_type.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}
