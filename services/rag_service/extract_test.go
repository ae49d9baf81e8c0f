package rag_service

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/bistoury/rag_type"
)

// buildBlankPDF assembles a minimal single-page PDF with an empty content
// stream, computing the cross-reference offsets as it goes.
func buildBlankPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	var offsets []int
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>\nendobj\n")
	addObj("4 0 obj\n<< /Length 0 >>\nstream\n\nendstream\nendobj\n")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n")
	fmt.Fprintf(&buf, "0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func TestExtractBlankPDFPageYieldsEmptyText(t *testing.T) {
	extractor := NewDocumentExtractor(testLogger(), nil)

	text, err := extractor.ExtractTextFromPDF("blank.pdf", buildBlankPDF(t))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtractCorruptPDF(t *testing.T) {
	extractor := NewDocumentExtractor(testLogger(), nil)

	_, err := extractor.ExtractTextFromPDF("corrupt.pdf", []byte("definitely not a pdf"))
	require.Error(t, err)

	var extractionErr *rag_type.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "corrupt.pdf", extractionErr.Filename)
}

func TestExtractHTMLJoinsBlocks(t *testing.T) {
	extractor := NewDocumentExtractor(testLogger(), nil)

	html := `<html><head><script>alert("x")</script><style>p{}</style></head>
<body><h1>Discharge Instructions</h1><p>Rest for two days.</p><ul><li>No heavy lifting.</li></ul></body></html>`

	text, err := extractor.ExtractTextFromHTML("discharge.html", []byte(html))
	require.NoError(t, err)

	assert.Equal(t, "Discharge Instructions\nRest for two days.\nNo heavy lifting.", text)
	assert.NotContains(t, text, "alert")
}

func TestExtractHTMLWithoutBlocks(t *testing.T) {
	extractor := NewDocumentExtractor(testLogger(), nil)

	text, err := extractor.ExtractTextFromHTML("frag.html", []byte("<html><body>just text</body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "just text", text)
}

func TestExtractDispatchUnsupportedKind(t *testing.T) {
	extractor := NewDocumentExtractor(testLogger(), nil)

	_, err := extractor.Extract(rag_type.Document{Filename: "mystery.bin", MediaKind: "binary"})
	require.Error(t, err)

	var extractionErr *rag_type.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}
