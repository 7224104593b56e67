package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmbeddingRequest  = errors.New("embedding request failed")
	ErrEmbeddingResponse = errors.New("embedding response missing data")
)

// truncationMarker is appended whenever input text is shortened so
// downstream consumers can see the input was cut.
const truncationMarker = "\n\n[Ingekort vanwege lengte]"

// LimitText caps text at maxChars characters, appending the truncation
// marker when it cuts.
func LimitText(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + truncationMarker
}

// EmbeddingConfig holds the settings for the embedding endpoint.
type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	MaxChars   int
}

// EmbeddingClient is a single-attempt wrapper around the embeddings
// endpoint. Retry policy, if any, is the caller's responsibility.
type EmbeddingClient struct {
	httpClient *http.Client
	cfg        EmbeddingConfig
}

// NewEmbeddingClient creates a new embedding client.
func NewEmbeddingClient(cfg EmbeddingConfig) *EmbeddingClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 8000
	}
	return &EmbeddingClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
	}
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed turns text into a fixed-dimension vector. Input longer than the
// configured ceiling is truncated with a visible marker.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      LimitText(text, c.cfg.MaxChars),
		Dimensions: c.cfg.Dimensions,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Error().Int("status", resp.StatusCode).Str("body", string(bodyBytes)).Msg("embedding request failed")
		return nil, fmt.Errorf("%w: status %d", ErrEmbeddingRequest, resp.StatusCode)
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingResponse, err)
	}
	if len(apiResp.Data) == 0 || len(apiResp.Data[0].Embedding) == 0 {
		return nil, ErrEmbeddingResponse
	}
	return apiResp.Data[0].Embedding, nil
}
