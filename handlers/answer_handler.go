package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"jurislens-backend/models"
	"jurislens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Answerer answers a question from previously retrieved results.
type Answerer interface {
	Answer(ctx context.Context, query string, results []models.RetrievedCase) (string, error)
}

// AnswerHandler handles HTTP requests for snippet-grounded answers.
type AnswerHandler struct {
	answerer Answerer
}

// NewAnswerHandler creates a new answer handler.
func NewAnswerHandler(answerer Answerer) *AnswerHandler {
	return &AnswerHandler{answerer: answerer}
}

type answerRequest struct {
	Query   string                 `json:"query"`
	Results []models.RetrievedCase `json:"results"`
}

// Answer handles POST /api/answer.
func (h *AnswerHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Ongeldig verzoek.",
		})
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" || len(req.Results) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Vraag en zoekresultaten zijn verplicht.",
		})
		return
	}

	answer, err := h.answerer.Answer(c.Request.Context(), req.Query, req.Results)
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed")
		if errors.Is(err, service.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "Server is niet geconfigureerd.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Antwoord genereren is mislukt.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"answer": answer,
	})
}
