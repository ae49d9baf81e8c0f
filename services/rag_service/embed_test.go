package rag_service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/bistoury/rag_type"
)

func TestEmbedReturnsOneVectorPerInput(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// One distinguishable vector per input, in request order.
		vectors := make([][]float32, len(req.Inputs))
		for i := range req.Inputs {
			vectors[i] = []float32{float32(i), 1, 0}
		}
		json.NewEncoder(w).Encode(vectors)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "secret", "all-mpnet-base-v2", 3, testLogger())
	vectors, err := client.Embed(context.Background(), []string{"first chunk", "second chunk"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1, 0}, vectors[0])
	assert.Equal(t, []float32{1, 1, 0}, vectors[1])
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestEmbedEmptyBatch(t *testing.T) {
	client := NewEmbeddingClient("http://unreachable.invalid", "", "m", 3, testLogger())
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBackendErrorIsEmbeddingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "", "m", 3, testLogger())
	_, err := client.Embed(context.Background(), []string{"text"})
	require.Error(t, err)

	var embErr *rag_type.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestEmbedCountMismatchIsEmbeddingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{1, 0, 0}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "", "m", 3, testLogger())
	_, err := client.Embed(context.Background(), []string{"a", "b"})

	var embErr *rag_type.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestEmbedDimensionMismatchIsEmbeddingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{1, 0}})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL, "", "m", 3, testLogger())
	_, err := client.Embed(context.Background(), []string{"a"})

	var embErr *rag_type.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestEmbedUnreachableBackend(t *testing.T) {
	client := NewEmbeddingClient("http://127.0.0.1:1/embed", "", "m", 3, testLogger())
	_, err := client.Embed(context.Background(), []string{"a"})

	var embErr *rag_type.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}
