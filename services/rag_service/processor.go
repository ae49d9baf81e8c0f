package rag_service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solenne/bistoury/rag_type"
	"github.com/solenne/bistoury/vector_store"
)

// Processor runs the write path of the ingestion pipeline: extract text,
// chunk it, embed each chunk and upsert the entries into the vector index.
// Failures are isolated per chunk and per document — a bad chunk is skipped
// and reported, it never aborts its siblings.
type Processor struct {
	logger    *slog.Logger
	extractor *DocumentExtractor
	chunker   *Chunker
	embedder  rag_type.Embedder
	store     vector_store.Store
}

func NewProcessor(extractor *DocumentExtractor, chunker *Chunker, embedder rag_type.Embedder, store vector_store.Store, logger *slog.Logger) *Processor {
	return &Processor{
		logger:    logger,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
	}
}

// IngestDocument extracts, chunks, embeds and indexes one document. The
// returned report counts chunks that made it into the index and lists the
// ones that did not. A document from which no text could be recovered
// produces an empty report, not an error.
func (p *Processor) IngestDocument(ctx context.Context, doc rag_type.Document) (*rag_type.IngestReport, error) {
	text, err := p.extractText(doc)
	if err != nil {
		return nil, err
	}
	return p.indexText(ctx, doc.Filename, text)
}

func (p *Processor) extractText(doc rag_type.Document) (string, error) {
	text, err := p.extractor.Extract(doc)
	if err != nil {
		var preprocessErr *rag_type.PreprocessingError
		if errors.As(err, &preprocessErr) {
			// No text recovered; the rest of the batch must still complete.
			p.logger.Warn("Preprocessing failed, document yields no text",
				slog.String("filename", doc.Filename),
				slog.String("error", err.Error()))
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// indexText chunks, embeds and upserts already extracted text. Chunks are
// embedded in sequence order; one whose embedding fails is recorded and
// skipped.
func (p *Processor) indexText(ctx context.Context, filename, text string) (*rag_type.IngestReport, error) {
	report := &rag_type.IngestReport{Filename: filename}

	if text == "" {
		p.logger.Info("Document contains no extractable text",
			slog.String("filename", filename))
		return report, nil
	}

	chunks := p.chunker.Split(filename, text)
	report.ChunkCount = len(chunks)

	entries := make([]rag_type.IndexEntry, 0, len(chunks))
	for _, chunk := range chunks {
		vectors, err := p.embedder.Embed(ctx, []string{chunk.Text})
		if err != nil {
			p.logger.Error("Failed to embed chunk",
				slog.String("filename", filename),
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", err.Error()))
			report.Failures = append(report.Failures, rag_type.ChunkFailure{
				ChunkIndex: chunk.Index,
				Reason:     err.Error(),
			})
			continue
		}
		entries = append(entries, rag_type.IndexEntry{
			ID:         uuid.NewString(),
			Vector:     vectors[0],
			Text:       chunk.Text,
			Source:     chunk.Source,
			ChunkIndex: chunk.Index,
		})
	}

	if len(entries) == 0 && len(chunks) > 0 {
		// Every single chunk failed: the backend is down, not the data.
		return report, &rag_type.EmbeddingError{
			Err: fmt.Errorf("all %d chunks of %s failed to embed", len(chunks), filename),
		}
	}

	written, err := p.store.Upsert(ctx, entries)
	report.Indexed = written
	if err != nil {
		var writeErr *rag_type.IndexWriteError
		if errors.As(err, &writeErr) {
			for _, f := range writeErr.Failures {
				report.Failures = append(report.Failures, rag_type.ChunkFailure{
					ChunkIndex: f.ChunkIndex,
					Reason:     f.Reason,
				})
			}
		} else {
			return report, err
		}
	}

	p.logger.Info("Document ingested",
		slog.String("filename", filename),
		slog.Int("chunks", report.ChunkCount),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failures)))

	return report, nil
}

// ProcessDocument wraps the ingestion pipeline with per-document failure
// isolation and timing metadata for the HTTP surface. Extraction failures
// come back as a failed response, not an error, so sibling documents in a
// batch proceed.
func (p *Processor) ProcessDocument(ctx context.Context, doc rag_type.Document) (*rag_type.RAGResponse, error) {
	metadata := rag_type.DocumentMetadata{
		ContentType: contentTypeOf(doc.MediaKind),
	}

	extractStart := time.Now()
	text, err := p.extractText(doc)
	metadata.ProcessingStats.ExtractionTime = time.Since(extractStart).Seconds()

	if err != nil {
		var extractionErr *rag_type.ExtractionError
		if errors.As(err, &extractionErr) {
			return &rag_type.RAGResponse{
				Filename: doc.Filename,
				Message:  "Failed to extract text from document",
				Status:   "failed",
				Error:    err.Error(),
				Metadata: metadata,
			}, nil
		}
		return nil, err
	}

	metadata.WordCount = len(strings.Fields(text))
	metadata.ContentPreview = preview(text)

	indexStart := time.Now()
	report, err := p.indexText(ctx, doc.Filename, text)
	metadata.ProcessingStats.IndexingTime = time.Since(indexStart).Seconds()
	if err != nil {
		return nil, err
	}

	status := "indexed"
	message := "Document processed successfully"
	if report.ChunkCount == 0 {
		status = "empty"
		message = "No text recovered from document"
	}

	return &rag_type.RAGResponse{
		Filename: doc.Filename,
		Message:  message,
		Status:   status,
		Report:   report,
		Metadata: metadata,
	}, nil
}

var mediaContentTypes = map[rag_type.MediaKind]string{
	rag_type.MediaKindPDF:   "application/pdf",
	rag_type.MediaKindWord:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	rag_type.MediaKindHTML:  "text/html",
	rag_type.MediaKindImage: "image/*",
}

func contentTypeOf(kind rag_type.MediaKind) string {
	if ct, ok := mediaContentTypes[kind]; ok {
		return ct
	}
	return "application/octet-stream"
}

func preview(text string) string {
	const limit = 250
	if len(text) > limit {
		return strings.TrimSpace(text[:limit]) + "..."
	}
	return text
}
