package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jurislens-backend/models"
)

var ErrAnswerRequest = errors.New("answer request failed")

const answerSnippetChars = 1200

// AnswerService answers a question from previously retrieved search
// results only, citing ECLIs, or declares the evidence insufficient.
type AnswerService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// AnswerServiceOption is a functional option for AnswerService.
type AnswerServiceOption func(*AnswerService)

// AnswerWithCompletion sets the completion endpoint settings.
func AnswerWithCompletion(baseURL, apiKey, model string) AnswerServiceOption {
	return func(s *AnswerService) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
		if model != "" {
			s.model = model
		}
		s.apiKey = apiKey
	}
}

// NewAnswerService creates a new answer service.
func NewAnswerService(opts ...AnswerServiceOption) *AnswerService {
	s := &AnswerService{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultOpenAIBaseURL,
		model:      "gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// buildSnippetBlock renders the supplied results as numbered,
// ECLI-tagged snippets capped at answerSnippetChars each.
func buildSnippetBlock(results []models.RetrievedCase) string {
	blocks := make([]string, 0, len(results))
	for i, result := range results {
		snippet := result.Content
		if runes := []rune(snippet); len(runes) > answerSnippetChars {
			snippet = string(runes[:answerSnippetChars])
		}
		blocks = append(blocks, fmt.Sprintf("Snippet %d (ECLI: %s):\n%s", i+1, orUnknown(result.ECLI), snippet))
	}
	return strings.Join(blocks, "\n\n")
}

// Answer forwards the question and snippets to the completion endpoint.
func (s *AnswerService) Answer(ctx context.Context, query string, results []models.RetrievedCase) (string, error) {
	if s.apiKey == "" {
		return "", ErrNotConfigured
	}

	system := "Answer using only the snippets, cite ECLI(s); if insufficient, say so."
	user := fmt.Sprintf("Vraag: %s\n\nSnippets:\n%s", query, buildSnippetBlock(results))

	answer, err := callResponsesAPI(ctx, s.httpClient, s.baseURL, s.apiKey, s.model, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnswerRequest, err)
	}
	return answer, nil
}
