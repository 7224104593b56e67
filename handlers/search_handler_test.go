package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurislens-backend/models"
	"jurislens-backend/service"
)

type stubHandlerEmbedder struct {
	vector []float64
	err    error
}

func (s *stubHandlerEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return s.vector, s.err
}

type stubHandlerSearcher struct {
	cases      []models.RetrievedCase
	err        error
	matchCount int
}

func (s *stubHandlerSearcher) Search(_ context.Context, _ string, _ []float64, matchCount int) ([]models.RetrievedCase, error) {
	s.matchCount = matchCount
	return s.cases, s.err
}

func searchRouter(embedder service.Embedder, searcher service.CaseSearcher) *gin.Engine {
	router := gin.New()
	router.POST("/api/search", NewSearchHandler(embedder, searcher).Search)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSearchBlankQuery(t *testing.T) {
	router := searchRouter(&stubHandlerEmbedder{}, &stubHandlerSearcher{})

	w := postJSON(t, router, "/api/search", gin.H{"query": "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchDefaultsAndCap(t *testing.T) {
	cases := make([]models.RetrievedCase, 12)
	for i := range cases {
		cases[i] = models.RetrievedCase{ECLI: "ECLI:NL:HR:2020:123", Score: 1 - float64(i)*0.05}
	}
	searcher := &stubHandlerSearcher{cases: cases}
	router := searchRouter(&stubHandlerEmbedder{vector: []float64{0.1}}, searcher)

	w := postJSON(t, router, "/api/search", gin.H{"query": "ontslag op staande voet"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultSearchFetch, searcher.matchCount)

	var resp struct {
		OK      bool                   `json:"ok"`
		Results []models.RetrievedCase `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Len(t, resp.Results, searchTopN)
}

func TestSearchEmbedderNotConfigured(t *testing.T) {
	router := searchRouter(&stubHandlerEmbedder{err: service.ErrNotConfigured}, &stubHandlerSearcher{})

	w := postJSON(t, router, "/api/search", gin.H{"query": "ontslag"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "niet geconfigureerd")
}

func TestSearchRetrievalFailure(t *testing.T) {
	searcher := &stubHandlerSearcher{err: errors.New("boom")}
	router := searchRouter(&stubHandlerEmbedder{vector: []float64{0.1}}, searcher)

	w := postJSON(t, router, "/api/search", gin.H{"query": "ontslag", "k": 5})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 5, searcher.matchCount)
}
