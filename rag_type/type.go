package rag_type

import (
	"context"
	"path/filepath"
	"strings"
)

// MediaKind is the declared media type of an uploaded document.
type MediaKind string

const (
	MediaKindPDF   MediaKind = "pdf"
	MediaKindWord  MediaKind = "word"
	MediaKindHTML  MediaKind = "html"
	MediaKindImage MediaKind = "image"
)

// Document is a single uploaded file awaiting ingestion. The content is
// consumed once per ingestion call and never mutated.
type Document struct {
	Filename  string
	MediaKind MediaKind
	Content   []byte
}

// Chunk is a contiguous slice of a document's extracted text. Chunks are
// derived deterministically: re-chunking the same text yields the same
// sequence.
type Chunk struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// IndexEntry is the persisted unit in the vector index: the embedding, the
// chunk text it came from and enough metadata to attribute it back to the
// uploaded file.
type IndexEntry struct {
	ID         string    `json:"id"`
	Vector     []float32 `json:"vector"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunk_index"`
}

// QueryMatch is one ranked result from a similarity query.
type QueryMatch struct {
	Entry IndexEntry `json:"entry"`
	Score float64    `json:"score"`
}

// ChunkFailure records a single chunk that could not be embedded or written.
type ChunkFailure struct {
	ChunkIndex int    `json:"chunk_index"`
	Reason     string `json:"reason"`
}

// IngestReport summarizes one document's ingestion. A document whose chunks
// partially failed still counts as ingested; the failures are listed here
// rather than aborting the sibling chunks.
type IngestReport struct {
	Filename   string         `json:"filename"`
	ChunkCount int            `json:"chunk_count"`
	Indexed    int            `json:"indexed"`
	Failures   []ChunkFailure `json:"failures,omitempty"`
}

// ProcessingStats carries per-phase timings for a processed document.
type ProcessingStats struct {
	ExtractionTime float64 `json:"extraction_time"`
	EmbeddingTime  float64 `json:"embedding_time"`
	IndexingTime   float64 `json:"indexing_time"`
}

// DocumentMetadata is returned alongside ingestion results.
type DocumentMetadata struct {
	ContentType     string          `json:"content_type"`
	WordCount       int             `json:"word_count"`
	ContentPreview  string          `json:"content_preview"`
	ProcessingStats ProcessingStats `json:"processing_stats"`
}

// RAGResponse is the handler-facing result for one processed document.
type RAGResponse struct {
	Filename string           `json:"filename"`
	Message  string           `json:"message"`
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Report   *IngestReport    `json:"report,omitempty"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Embedder maps text to fixed-dimension vectors. The same implementation must
// be used for ingestion-time chunks and query-time text, otherwise the
// vectors are not comparable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

var extKinds = map[string]MediaKind{
	".pdf":  MediaKindPDF,
	".doc":  MediaKindWord,
	".docx": MediaKindWord,
	".htm":  MediaKindHTML,
	".html": MediaKindHTML,
	".png":  MediaKindImage,
	".jpg":  MediaKindImage,
	".jpeg": MediaKindImage,
	".tif":  MediaKindImage,
	".tiff": MediaKindImage,
	".bmp":  MediaKindImage,
}

// KindFromFilename maps a filename extension to a MediaKind. The empty string
// is returned for unsupported extensions.
func KindFromFilename(filename string) MediaKind {
	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := extKinds[ext]; ok {
		return kind
	}
	return ""
}
