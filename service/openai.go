package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrNotConfigured means a required external-service credential is
// missing. Handlers map it to a generic configuration error.
var ErrNotConfigured = errors.New("server not configured")

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string        `json:"model"`
	Input []chatMessage `json:"input"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// outputText returns the model text from whichever field the responses
// API populated.
func (r *responsesResponse) outputText() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	if len(r.Output) > 0 && len(r.Output[0].Content) > 0 {
		return r.Output[0].Content[0].Text
	}
	return ""
}

// callResponsesAPI issues a single completion request. No retry: any
// resilience policy belongs to the caller or the infrastructure.
func callResponsesAPI(
	ctx context.Context,
	httpClient *http.Client,
	baseURL, apiKey, model, systemPrompt, userPrompt string,
) (string, error) {
	reqBody := responsesRequest{
		Model: model,
		Input: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/responses", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("body", string(bodyBytes)).Msg("completion request failed")
		return "", fmt.Errorf("completion API error: %d", resp.StatusCode)
	}

	var apiResp responsesResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return apiResp.outputText(), nil
}
