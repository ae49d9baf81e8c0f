package rag_type

import (
	"fmt"
	"time"
)

// ExtractionError means the document bytes could not be parsed at all. A
// document that parses but contains no recoverable text is not an error.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PreprocessingError means even the grayscale fallback of the OCR pipeline
// failed. Callers treat it as "no text recovered" for that document, not as a
// fatal batch error.
type PreprocessingError struct {
	Filename string
	Err      error
}

func (e *PreprocessingError) Error() string {
	return fmt.Sprintf("image preprocessing failed for %s: %v", e.Filename, e.Err)
}

func (e *PreprocessingError) Unwrap() error { return e.Err }

// EmbeddingError means the embedding backend is unreachable or misconfigured.
// There is no local fallback model, so it is fatal for the current call.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding backend: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexNotReadyError means the collection exists (or was just created) but
// the service did not report it ready before the wait deadline. Retryable.
type IndexNotReadyError struct {
	Index  string
	Waited time.Duration
}

func (e *IndexNotReadyError) Error() string {
	return fmt.Sprintf("index %q not ready after %s", e.Index, e.Waited)
}

// EntryFailure records one rejected index entry.
type EntryFailure struct {
	ID         string `json:"id"`
	ChunkIndex int    `json:"chunk_index"`
	Reason     string `json:"reason"`
}

// IndexWriteError reports a partially failed upsert: Written entries were
// persisted, Failures were rejected. It is never used to hide a write — a
// batch that produced one is still a batch that made progress.
type IndexWriteError struct {
	Written  int
	Failures []EntryFailure
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write: %d written, %d failed", e.Written, len(e.Failures))
}
