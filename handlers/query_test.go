package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/bistoury/rag_type"
)

type fakeRetriever struct {
	matches  []rag_type.QueryMatch
	err      error
	gotQuery string
	gotTopK  int
}

func (f *fakeRetriever) Query(_ context.Context, query string, topK int) ([]rag_type.QueryMatch, error) {
	f.gotQuery = query
	f.gotTopK = topK
	return f.matches, f.err
}

func queryRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/context", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestQueryReturnsRankedContext(t *testing.T) {
	retriever := &fakeRetriever{matches: []rag_type.QueryMatch{
		{Entry: rag_type.IndexEntry{Text: "keep the wound dry", Source: "aftercare.pdf", ChunkIndex: 2}, Score: 0.92},
		{Entry: rag_type.IndexEntry{Text: "change dressing daily", Source: "aftercare.pdf", ChunkIndex: 3}, Score: 0.85},
	}}
	handler := NewQueryHandler(retriever, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, queryRequest(t, `{"query": "wound care", "top_k": 2}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "wound care", retriever.gotQuery)
	assert.Equal(t, 2, retriever.gotTopK)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "keep the wound dry\n\nchange dressing daily", resp.Context)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "aftercare.pdf", resp.Matches[0].Source)
	assert.Equal(t, 2, resp.Matches[0].ChunkIndex)
	assert.InDelta(t, 0.92, resp.Matches[0].Score, 1e-9)
}

func TestQueryWithNoMatches(t *testing.T) {
	handler := NewQueryHandler(&fakeRetriever{}, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, queryRequest(t, `{"query": "anything"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, "", resp.Context)
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	handler := NewQueryHandler(&fakeRetriever{}, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, queryRequest(t, `{"query": "   "}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsMalformedBody(t *testing.T) {
	handler := NewQueryHandler(&fakeRetriever{}, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, queryRequest(t, `{"query": `))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRetrieverFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("embedding backend unavailable")}
	handler := NewQueryHandler(retriever, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, queryRequest(t, `{"query": "wound care"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
