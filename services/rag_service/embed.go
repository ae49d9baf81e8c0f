package rag_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/solenne/bistoury/rag_type"
)

// EmbeddingClient talks to a text-embeddings-inference endpoint serving the
// sentence-transformer model used for both chunk and query embedding. The
// client is constructed once and injected wherever embeddings are needed so
// both paths are guaranteed to share one model.
type EmbeddingClient struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
	logger    *slog.Logger
}

func NewEmbeddingClient(endpoint, apiKey, model string, dimension int, logger *slog.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: 60 * time.Second},
		logger:    logger,
	}
}

func (e *EmbeddingClient) Dimension() int { return e.dimension }

type embeddingRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// Embed returns one vector per input text, order-preserving. An empty input
// string is valid and embeds to whatever the model produces for it; backend
// failures surface as *rag_type.EmbeddingError.
func (e *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(embeddingRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, &rag_type.EmbeddingError{Err: fmt.Errorf("failed to marshal embedding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &rag_type.EmbeddingError{Err: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &rag_type.EmbeddingError{Err: fmt.Errorf("failed to reach embedding service: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &rag_type.EmbeddingError{
			Err: fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, &rag_type.EmbeddingError{Err: fmt.Errorf("failed to decode embedding response: %w", err)}
	}

	if len(vectors) != len(texts) {
		return nil, &rag_type.EmbeddingError{
			Err: fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vectors), len(texts)),
		}
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, &rag_type.EmbeddingError{
				Err: fmt.Errorf("vector %d has dimension %d, model %s expects %d", i, len(v), e.model, e.dimension),
			}
		}
	}

	e.logger.Debug("Embedded texts",
		slog.Int("count", len(texts)),
		slog.String("model", e.model))

	return vectors, nil
}
