package handlers

import (
	"errors"
	"net/http"
	"strings"

	"jurislens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// defaultSearchFetch chunks are requested per search; after
	// deduplication at most searchTopN decisions go to the client.
	defaultSearchFetch = 40
	searchTopN         = 10
)

// SearchHandler handles HTTP requests for case-law search.
type SearchHandler struct {
	embedder service.Embedder
	searcher service.CaseSearcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(embedder service.Embedder, searcher service.CaseSearcher) *SearchHandler {
	return &SearchHandler{embedder: embedder, searcher: searcher}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Ongeldige zoekopdracht.",
		})
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Zoekopdracht mag niet leeg zijn.",
		})
		return
	}
	if req.K <= 0 {
		req.K = defaultSearchFetch
	}

	embedding, err := h.embedder.Embed(c.Request.Context(), req.Query)
	if err != nil {
		log.Error().Err(err).Msg("query embedding failed")
		if errors.Is(err, service.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "Server is niet geconfigureerd.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Zoeken is mislukt. Probeer het later opnieuw.",
		})
		return
	}

	results, err := h.searcher.Search(c.Request.Context(), req.Query, embedding, req.K)
	if err != nil {
		log.Error().Err(err).Msg("case search failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Zoeken is mislukt. Probeer het later opnieuw.",
		})
		return
	}
	if len(results) > searchTopN {
		results = results[:searchTopN]
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"results": results,
	})
}
