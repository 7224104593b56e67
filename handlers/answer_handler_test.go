package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurislens-backend/models"
	"jurislens-backend/service"
)

type stubAnswerer struct {
	answer string
	err    error
	query  string
}

func (s *stubAnswerer) Answer(_ context.Context, query string, _ []models.RetrievedCase) (string, error) {
	s.query = query
	return s.answer, s.err
}

func answerRouter(answerer Answerer) *gin.Engine {
	router := gin.New()
	router.POST("/api/answer", NewAnswerHandler(answerer).Answer)
	return router
}

func TestAnswerRequiresQueryAndResults(t *testing.T) {
	router := answerRouter(&stubAnswerer{})

	w := postJSON(t, router, "/api/answer", gin.H{"query": "", "results": []gin.H{{"ecli": "x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/api/answer", gin.H{"query": "Wat telt als onverwijld?", "results": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnswerSuccess(t *testing.T) {
	answerer := &stubAnswerer{answer: "Zie ECLI:NL:HR:2020:123."}
	router := answerRouter(answerer)

	w := postJSON(t, router, "/api/answer", gin.H{
		"query":   "  Wat telt als onverwijld?  ",
		"results": []gin.H{{"ecli": "ECLI:NL:HR:2020:123", "content": "snippet"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wat telt als onverwijld?", answerer.query)

	var resp struct {
		OK     bool   `json:"ok"`
		Answer string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Zie ECLI:NL:HR:2020:123.", resp.Answer)
}

func TestAnswerNotConfigured(t *testing.T) {
	router := answerRouter(&stubAnswerer{err: service.ErrNotConfigured})

	w := postJSON(t, router, "/api/answer", gin.H{
		"query":   "Wat telt als onverwijld?",
		"results": []gin.H{{"ecli": "ECLI:NL:HR:2020:123"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "niet geconfigureerd")
}
