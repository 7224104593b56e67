package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurislens-backend/models"
)

func TestBuildSnippetBlock(t *testing.T) {
	results := []models.RetrievedCase{
		{ECLI: "ECLI:NL:HR:2020:123", Content: "Eerste snippet."},
		{Content: strings.Repeat("x", answerSnippetChars+50)},
	}

	got := buildSnippetBlock(results)

	assert.Contains(t, got, "Snippet 1 (ECLI: ECLI:NL:HR:2020:123):\nEerste snippet.")
	assert.Contains(t, got, "Snippet 2 (ECLI: Onbekend):")
	// Long snippets are cut without a marker.
	assert.NotContains(t, got, truncationMarker)
	assert.Contains(t, got, strings.Repeat("x", answerSnippetChars))
	assert.NotContains(t, got, strings.Repeat("x", answerSnippetChars+1))
}

func TestAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)
		assert.Contains(t, req.Input[1].Content, "Vraag: Wat is onverwijld?")
		assert.Contains(t, req.Input[1].Content, "Snippet 1 (ECLI: ECLI:NL:HR:2020:123)")

		json.NewEncoder(w).Encode(map[string]string{"output_text": "Zie ECLI:NL:HR:2020:123."})
	}))
	defer server.Close()

	svc := NewAnswerService(AnswerWithCompletion(server.URL, "test-key", ""))
	answer, err := svc.Answer(context.Background(), "Wat is onverwijld?", []models.RetrievedCase{
		{ECLI: "ECLI:NL:HR:2020:123", Content: "snippet"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Zie ECLI:NL:HR:2020:123.", answer)
}

func TestAnswerNotConfigured(t *testing.T) {
	svc := NewAnswerService()
	_, err := svc.Answer(context.Background(), "vraag", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnswerRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewAnswerService(AnswerWithCompletion(server.URL, "key", ""))
	_, err := svc.Answer(context.Background(), "vraag", nil)
	assert.ErrorIs(t, err, ErrAnswerRequest)
}
