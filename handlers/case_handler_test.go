package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurislens-backend/repository"
	"jurislens-backend/service"
)

type stubDetails struct {
	detail *service.CaseDetail
	err    error
	ecli   string
}

func (s *stubDetails) Get(_ context.Context, ecli string) (*service.CaseDetail, error) {
	s.ecli = ecli
	return s.detail, s.err
}

func caseRouter(details CaseDetailGetter) *gin.Engine {
	router := gin.New()
	router.GET("/api/ecli/*ecli", NewCaseHandler(details).GetCase)
	return router
}

func getCase(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetCaseInvalidECLI(t *testing.T) {
	router := caseRouter(&stubDetails{})

	w := getCase(router, "/api/ecli/niet-een-ecli")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCaseSuccess(t *testing.T) {
	details := &stubDetails{detail: &service.CaseDetail{
		ECLI:       "ECLI:NL:HR:2020:123",
		Title:      "Onverwijlde opzegging",
		RulingHTML: `<section class="uitspraak-root"><p>tekst</p></section>`,
	}}
	router := caseRouter(details)

	w := getCase(router, "/api/ecli/ECLI:NL:HR:2020:123")

	require.Equal(t, http.StatusOK, w.Code)
	// The catch-all parameter's leading slash is stripped.
	assert.Equal(t, "ECLI:NL:HR:2020:123", details.ecli)
	assert.Contains(t, w.Body.String(), "uitspraak-root")
}

func TestGetCaseNotFound(t *testing.T) {
	router := caseRouter(&stubDetails{err: repository.ErrCaseNotFound})

	w := getCase(router, "/api/ecli/ECLI:NL:HR:1900:1")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCaseNoSource(t *testing.T) {
	router := caseRouter(&stubDetails{err: service.ErrNoRulingSource})

	w := getCase(router, "/api/ecli/ECLI:NL:HR:2020:123")

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
