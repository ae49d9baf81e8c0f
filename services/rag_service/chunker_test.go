package rag_service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerSplitsFixedWindows(t *testing.T) {
	chunker := NewChunker(512)
	text := strings.Repeat("a", 1500)

	chunks := chunker.Split("report.pdf", text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 512, len(chunks[0].Text))
	assert.Equal(t, 512, len(chunks[1].Text))
	assert.Equal(t, 476, len(chunks[2].Text))

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "report.pdf", c.Source)
	}
}

func TestChunkerRoundTrip(t *testing.T) {
	chunker := NewChunker(7)
	texts := []string{
		"short",
		strings.Repeat("pre-surgery checklist. ", 40),
		"exactly14chars",
	}

	for _, text := range texts {
		chunks := chunker.Split("doc", text)
		var rebuilt strings.Builder
		for _, c := range chunks {
			rebuilt.WriteString(c.Text)
		}
		assert.Equal(t, text, rebuilt.String())
	}
}

func TestChunkerDeterministic(t *testing.T) {
	chunker := NewChunker(64)
	text := strings.Repeat("post-operative wound care instructions. ", 30)

	first := chunker.Split("faq.pdf", text)
	second := chunker.Split("faq.pdf", text)

	assert.Equal(t, first, second)
}

func TestChunkerEmptyInput(t *testing.T) {
	chunker := NewChunker(512)
	assert.Empty(t, chunker.Split("empty.pdf", ""))
}

func TestChunkerCountsRunesNotBytes(t *testing.T) {
	chunker := NewChunker(4)
	// Each rune below is multi-byte in UTF-8.
	text := "日本語のテキストです"

	chunks := chunker.Split("scan.png", text)

	require.Len(t, chunks, 3)
	assert.Equal(t, "日本語の", chunks[0].Text)
	assert.Equal(t, "テキスト", chunks[1].Text)
	assert.Equal(t, "です", chunks[2].Text)
}

func TestChunkerRejectsNonPositiveSize(t *testing.T) {
	chunker := NewChunker(0)
	assert.Equal(t, DefaultChunkSize, chunker.Size())
}
