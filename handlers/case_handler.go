package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"jurislens-backend/repository"
	"jurislens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CaseDetailGetter resolves one ruling's metadata and full text.
type CaseDetailGetter interface {
	Get(ctx context.Context, ecli string) (*service.CaseDetail, error)
}

// CaseHandler handles HTTP requests for single-ruling detail views.
type CaseHandler struct {
	details CaseDetailGetter
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(details CaseDetailGetter) *CaseHandler {
	return &CaseHandler{details: details}
}

// GetCase handles GET /api/ecli/*ecli. ECLIs contain colons, so the
// route uses a catch-all parameter and the leading slash is stripped.
func (h *CaseHandler) GetCase(c *gin.Context) {
	ecli := strings.TrimSpace(strings.TrimPrefix(c.Param("ecli"), "/"))
	if ecli == "" || !strings.HasPrefix(strings.ToUpper(ecli), "ECLI:") {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Ongeldige ECLI.",
		})
		return
	}

	detail, err := h.details.Get(c.Request.Context(), ecli)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"ok":    false,
				"error": "Uitspraak niet gevonden.",
			})
		case errors.Is(err, service.ErrNoRulingSource):
			log.Warn().Str("ecli", ecli).Msg("no ruling source available")
			c.JSON(http.StatusBadGateway, gin.H{
				"ok":    false,
				"error": "Uitspraaktekst kon niet worden opgehaald.",
			})
		default:
			log.Error().Err(err).Str("ecli", ecli).Msg("case detail lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "Uitspraak kon niet worden geladen.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"case": detail,
	})
}
