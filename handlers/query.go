package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/solenne/bistoury/rag_type"
)

// ContextRetriever is the read-path surface the query handler depends on.
type ContextRetriever interface {
	Query(ctx context.Context, query string, topK int) ([]rag_type.QueryMatch, error)
}

type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type QueryMatchResult struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type QueryResponse struct {
	Context string             `json:"context"`
	Matches []QueryMatchResult `json:"matches"`
	Count   int                `json:"count"`
}

// QueryHandler answers retrieval-augmented context queries: it embeds the
// query, searches the index and returns the matched chunk texts joined in
// rank order.
type QueryHandler struct {
	retriever ContextRetriever
	logger    *slog.Logger
}

func NewQueryHandler(retriever ContextRetriever, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		retriever: retriever,
		logger:    logger,
	}
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode query request",
			slog.String("error", err.Error()))
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, "Query cannot be empty", http.StatusBadRequest)
		return
	}

	matches, err := h.retriever.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		h.logger.Error("Context retrieval failed",
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to retrieve context", http.StatusInternalServerError)
		return
	}

	results := make([]QueryMatchResult, 0, len(matches))
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		results = append(results, QueryMatchResult{
			Text:       m.Entry.Text,
			Source:     m.Entry.Source,
			ChunkIndex: m.Entry.ChunkIndex,
			Score:      m.Score,
		})
		texts = append(texts, m.Entry.Text)
	}

	response := QueryResponse{
		Context: strings.Join(texts, "\n\n"),
		Matches: results,
		Count:   len(results),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode query response",
			slog.String("error", err.Error()))
	}
}
