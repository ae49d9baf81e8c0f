package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/bistoury/rag_type"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProcessor struct {
	failFilenames map[string]bool
	processed     []string
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, doc rag_type.Document) (*rag_type.RAGResponse, error) {
	f.processed = append(f.processed, doc.Filename)
	if f.failFilenames[doc.Filename] {
		return nil, errors.New("index service unreachable")
	}
	return &rag_type.RAGResponse{
		Filename: doc.Filename,
		Message:  "Document processed successfully",
		Status:   "indexed",
		Report:   &rag_type.IngestReport{Filename: doc.Filename, ChunkCount: 1, Indexed: 1},
	}, nil
}

func multipartRequest(t *testing.T, field string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadProcessesEachFileIndependently(t *testing.T) {
	processor := &fakeProcessor{failFilenames: map[string]bool{"bad.pdf": true}}
	handler := NewUploadHandler(processor, nil, testLogger())

	req := multipartRequest(t, "files", map[string]string{
		"good.pdf": "content",
		"bad.pdf":  "content",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.Count)

	statuses := map[string]string{}
	for _, doc := range resp.Documents {
		statuses[doc.Filename] = doc.Status
	}
	assert.Equal(t, "indexed", statuses["good.pdf"])
	assert.Equal(t, "failed", statuses["bad.pdf"])
	assert.Len(t, processor.processed, 2)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	processor := &fakeProcessor{}
	handler := NewUploadHandler(processor, nil, testLogger())

	req := multipartRequest(t, "file", map[string]string{"malware.exe": "x"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "failed", resp.Documents[0].Status)
	assert.Empty(t, processor.processed)
}

func TestUploadWithoutFiles(t *testing.T) {
	handler := NewUploadHandler(&fakeProcessor{}, nil, testLogger())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
