package rag_service

import (
	"github.com/solenne/bistoury/rag_type"
)

const DefaultChunkSize = 512

// Chunker slices extracted text into consecutive non-overlapping windows of
// a fixed character count. The final chunk may be shorter; concatenating the
// chunks in order reproduces the input exactly.
type Chunker struct {
	size int
}

func NewChunker(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{size: size}
}

func (c *Chunker) Size() int { return c.size }

// Split chunks text by rune count so multi-byte characters are never cut in
// half. Empty input yields no chunks.
func (c *Chunker) Split(source, text string) []rag_type.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]rag_type.Chunk, 0, (len(runes)+c.size-1)/c.size)
	for start, idx := 0, 0; start < len(runes); start, idx = start+c.size, idx+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, rag_type.Chunk{
			Source: source,
			Index:  idx,
			Text:   string(runes[start:end]),
		})
	}
	return chunks
}
