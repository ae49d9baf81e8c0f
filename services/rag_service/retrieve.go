package rag_service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/solenne/bistoury/rag_type"
	"github.com/solenne/bistoury/vector_store"
)

// Retriever is the read path: it embeds a live query with the same model
// used at ingestion and returns the most similar stored chunks. It holds no
// state across calls.
type Retriever struct {
	logger   *slog.Logger
	embedder rag_type.Embedder
	store    vector_store.Store
	topK     int
}

func NewRetriever(embedder rag_type.Embedder, store vector_store.Store, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 1
	}
	return &Retriever{
		logger:   logger,
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

// Query returns up to topK matches ranked most similar first. A topK of 0
// uses the retriever's configured default.
func (r *Retriever) Query(ctx context.Context, query string, topK int) ([]rag_type.QueryMatch, error) {
	if topK <= 0 {
		topK = r.topK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	matches, err := r.store.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Retrieved context for query",
		slog.Int("top_k", topK),
		slog.Int("matches", len(matches)))

	return matches, nil
}

// RetrieveContext returns the matched chunk texts joined in rank order,
// ready to be handed to the downstream generation stage.
func (r *Retriever) RetrieveContext(ctx context.Context, query string) (string, error) {
	matches, err := r.Query(ctx, query, r.topK)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Entry.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}
