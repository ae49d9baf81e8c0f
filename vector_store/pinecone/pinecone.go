package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solenne/bistoury/rag_type"
)

// Store is a minimal REST client to the Pinecone control and data planes.
// The collection is created on demand with a fixed metric; readiness is
// polled with a bounded, cancellable wait.
type Store struct {
	controlURL   string
	apiKey       string
	index        string
	dimension    int
	metric       string
	cloud        string
	region       string
	readyTimeout time.Duration
	pollInterval time.Duration

	host   string
	client *http.Client
	logger *slog.Logger
}

type Config struct {
	ControlURL   string
	APIKey       string
	IndexName    string
	Dimension    int
	Metric       string
	Cloud        string
	Region       string
	ReadyTimeout time.Duration
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &Store{
		controlURL:   strings.TrimRight(cfg.ControlURL, "/"),
		apiKey:       cfg.APIKey,
		index:        cfg.IndexName,
		dimension:    cfg.Dimension,
		metric:       cfg.Metric,
		cloud:        cfg.Cloud,
		region:       cfg.Region,
		readyTimeout: cfg.ReadyTimeout,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       logger,
	}
}

type indexList struct {
	Indexes []struct {
		Name string `json:"name"`
	} `json:"indexes"`
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureIndex creates the index if absent and blocks until the service
// reports it ready, up to the configured timeout.
func (s *Store) EnsureIndex(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}

	var list indexList
	if err := s.doJSON(ctx, http.MethodGet, s.controlURL+"/indexes", nil, &list); err != nil {
		return fmt.Errorf("listing indexes: %w", err)
	}

	exists := false
	for _, idx := range list.Indexes {
		if idx.Name == s.index {
			exists = true
			break
		}
	}

	if !exists {
		body := map[string]any{
			"name":      s.index,
			"dimension": s.dimension,
			"metric":    s.metric,
			"spec": map[string]any{
				"serverless": map[string]any{
					"cloud":  s.cloud,
					"region": s.region,
				},
			},
		}
		if err := s.doJSON(ctx, http.MethodPost, s.controlURL+"/indexes", body, nil); err != nil {
			return fmt.Errorf("creating index %q: %w", s.index, err)
		}
		s.logger.Info("Created vector index",
			slog.String("index", s.index),
			slog.Int("dimension", s.dimension),
			slog.String("metric", s.metric))
	}

	return s.waitReady(ctx)
}

func (s *Store) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.readyTimeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		var desc indexDescription
		err := s.doJSON(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil, &desc)
		if err == nil && desc.Status.Ready {
			s.host = desc.Host
			return nil
		}
		if err != nil {
			s.logger.Warn("Describe index failed while waiting for readiness",
				slog.String("index", s.index),
				slog.String("error", err.Error()))
		}

		if time.Now().After(deadline) {
			return &rag_type.IndexNotReadyError{Index: s.index, Waited: s.readyTimeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

func (s *Store) Upsert(ctx context.Context, entries []rag_type.IndexEntry) (int, error) {
	if s.host == "" {
		return 0, &rag_type.IndexNotReadyError{Index: s.index}
	}

	var failures []rag_type.EntryFailure
	vectors := make([]map[string]any, 0, len(entries))
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
		vectors = append(vectors, map[string]any{
			"id":     id,
			"values": e.Vector,
			"metadata": map[string]any{
				"text":        e.Text,
				"source":      e.Source,
				"chunk_index": e.ChunkIndex,
			},
		})
	}

	written := 0
	if len(vectors) > 0 {
		body := map[string]any{"vectors": vectors}
		var resp upsertResponse
		if err := s.doJSON(ctx, http.MethodPost, s.dataURL("/vectors/upsert"), body, &resp); err != nil {
			return 0, fmt.Errorf("upsert to index %q: %w", s.index, err)
		}
		written = resp.UpsertedCount
		if written == 0 {
			written = len(vectors)
		}
	}

	if len(failures) > 0 {
		return written, &rag_type.IndexWriteError{Written: written, Failures: failures}
	}
	return written, nil
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]rag_type.QueryMatch, error) {
	if s.host == "" {
		return nil, &rag_type.IndexNotReadyError{Index: s.index}
	}
	if topK <= 0 {
		topK = 1
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var resp queryResponse
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL("/query"), body, &resp); err != nil {
		return nil, fmt.Errorf("query index %q: %w", s.index, err)
	}

	matches := make([]rag_type.QueryMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		entry := rag_type.IndexEntry{ID: m.ID}
		if v, ok := m.Metadata["text"].(string); ok {
			entry.Text = v
		}
		if v, ok := m.Metadata["source"].(string); ok {
			entry.Source = v
		}
		if v, ok := m.Metadata["chunk_index"].(float64); ok {
			entry.ChunkIndex = int(v)
		}
		matches = append(matches, rag_type.QueryMatch{Entry: entry, Score: m.Score})
	}
	return matches, nil
}

func (s *Store) dataURL(path string) string {
	if strings.HasPrefix(s.host, "http://") || strings.HasPrefix(s.host, "https://") {
		return s.host + path
	}
	return "https://" + s.host + path
}

func (s *Store) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %s: %s", method, url, resp.Status, string(data))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
