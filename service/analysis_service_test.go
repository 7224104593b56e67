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

func TestLimitText(t *testing.T) {
	assert.Equal(t, "kort", LimitText("kort", 10))
	assert.Equal(t, "", LimitText("", 10))

	long := strings.Repeat("a", 20)
	got := LimitText(long, 10)
	assert.Equal(t, strings.Repeat("a", 10)+truncationMarker, got)

	// Rune-based, not byte-based.
	got = LimitText("ééééé", 3)
	assert.Equal(t, "ééé"+truncationMarker, got)
}

func TestBuildCaseContext(t *testing.T) {
	cases := []models.RetrievedCase{
		{
			ECLI:         "ECLI:NL:HR:2020:123",
			Title:        "Ontslag op staande voet",
			Court:        "Hoge Raad",
			DecisionDate: "2020-03-06",
			Score:        0.875,
			Content:      "De werkgever heeft onverwijld opgezegd.",
		},
		{ECLI: "", Score: func() float64 { var z float64; return z / z }()},
	}

	got := buildCaseContext(cases)

	assert.Contains(t, got, "RESULTAAT_ID: R1")
	assert.Contains(t, got, "ECLI: ECLI:NL:HR:2020:123")
	assert.Contains(t, got, "Score: 0.875")
	assert.Contains(t, got, "SNIPPET: De werkgever heeft onverwijld opgezegd.")

	// Missing fields render as Onbekend, NaN scores as n.v.t.
	assert.Contains(t, got, "RESULTAAT_ID: R2")
	assert.Contains(t, got, "ECLI: Onbekend")
	assert.Contains(t, got, "Score: n.v.t.")
}

func TestBuildCaseContextEmpty(t *testing.T) {
	assert.Equal(t, "", buildCaseContext(nil))
}

func TestDecodeAnalysisJSON(t *testing.T) {
	strict := `{"zaak_samenvatting":"Een zaak.","bronnen":[]}`
	parsed, ok := decodeAnalysisJSON(strict)
	require.True(t, ok)
	assert.Equal(t, "Een zaak.", parsed.Summary)

	// Prose-wrapped output still parses via the brace-span fallback.
	wrapped := "Hier is de JSON: {\"zaak_samenvatting\":\"Een zaak.\",\"bronnen\":[]} Succes!"
	parsed, ok = decodeAnalysisJSON(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Een zaak.", parsed.Summary)

	_, ok = decodeAnalysisJSON("geen json hier")
	assert.False(t, ok)

	_, ok = decodeAnalysisJSON("Kapot: {\"zaak_samenvatting\": }")
	assert.False(t, ok)
}

func validSource(id string) models.Source {
	return models.Source{
		ID:    id,
		Type:  models.SourceTypeDocument,
		Ref:   "doc",
		Loc:   "chars:0-10",
		Quote: "citaat",
	}
}

func TestNormalizeAnalysisRequiresSources(t *testing.T) {
	_, err := normalizeAnalysis(&rawAnalysis{Summary: "x"})
	assert.ErrorIs(t, err, ErrSynthesisSchema)

	// Incomplete sources are dropped; if none survive, the response is
	// invalid as a whole.
	_, err = normalizeAnalysis(&rawAnalysis{
		Sources: []models.Source{{ID: "DOC-1", Type: "document"}},
	})
	assert.ErrorIs(t, err, ErrSynthesisSchema)
}

func TestNormalizeAnalysisFiltersSourceIDs(t *testing.T) {
	parsed := &rawAnalysis{
		Summary: "  Samenvatting.  ",
		FactualClaims: []models.FactualClaim{
			{Text: "Feit een", SourceIDs: []string{"DOC-1", "ECLI-99", " "}},
			{Text: "   "},
		},
		Sources: []models.Source{validSource("DOC-1")},
	}

	result, err := normalizeAnalysis(parsed)
	require.NoError(t, err)

	assert.Equal(t, "Samenvatting.", result.Summary)
	require.Len(t, result.FactualClaims, 1)
	assert.Equal(t, []string{"DOC-1"}, result.FactualClaims[0].SourceIDs)
}

func TestNormalizeAnalysisCaps(t *testing.T) {
	parsed := &rawAnalysis{
		Sources: []models.Source{validSource("DOC-1")},
	}
	for i := 0; i < 15; i++ {
		parsed.WeakPoints = append(parsed.WeakPoints, models.WeakPoint{Point: "punt"})
		parsed.FollowUpQuestions = append(parsed.FollowUpQuestions, models.FollowUpQuestion{Question: "vraag"})
		parsed.AdvisoryNotes = append(parsed.AdvisoryNotes, models.AdvisoryNote{Title: "titel", Explanation: "uitleg"})
	}

	result, err := normalizeAnalysis(parsed)
	require.NoError(t, err)

	assert.Len(t, result.WeakPoints, weakPointCap)
	assert.Len(t, result.FollowUpQuestions, questionCap)
	assert.Len(t, result.AdvisoryNotes, advisoryCap)
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, models.PriorityHigh, normalizePriority("hoog"))
	assert.Equal(t, models.PriorityHigh, normalizePriority("  HOOG "))
	assert.Equal(t, models.PriorityLow, normalizePriority("laag"))
	assert.Equal(t, models.PriorityMedium, normalizePriority("middel"))
	assert.Equal(t, models.PriorityMedium, normalizePriority("urgent"))
	assert.Equal(t, models.PriorityMedium, normalizePriority(""))
}

type stubEmbedder struct {
	vector []float64
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return s.vector, s.err
}

type stubSearcher struct {
	cases      []models.RetrievedCase
	err        error
	matchCount int
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ []float64, matchCount int) ([]models.RetrievedCase, error) {
	s.matchCount = matchCount
	return s.cases, s.err
}

func analysisResponseJSON(t *testing.T) string {
	t.Helper()
	payload := map[string]any{
		"zaak_samenvatting": "Arbeidszaak over ontslag.",
		"kernfeiten": []map[string]any{
			{"tekst": "Werknemer is op 1 maart ontslagen.", "source_ids": []string{"DOC-1"}},
		},
		"bronnen": []map[string]any{
			{"id": "DOC-1", "type": "document", "ref": "doc", "loc": "chars:0-40", "quote": "op 1 maart ontslagen"},
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func TestAnalyzeDocumentPipeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)
		assert.Contains(t, req.Input[1].Content, "DOCUMENTTEKST:")
		assert.Contains(t, req.Input[1].Content, "ECLI:NL:HR:2020:123")

		json.NewEncoder(w).Encode(map[string]string{
			"output_text": analysisResponseJSON(t),
		})
	}))
	defer server.Close()

	searcher := &stubSearcher{
		cases: manyCases(12),
	}
	svc := NewAnalysisService(
		AnalysisWithEmbedder(&stubEmbedder{vector: []float64{0.1, 0.2}}),
		AnalysisWithSearcher(searcher),
		AnalysisWithCompletion(server.URL, "test-key", "gpt-4o-mini"),
	)

	cases, result, err := svc.AnalyzeDocument(context.Background(), "De werknemer is ontslagen.")
	require.NoError(t, err)

	assert.Equal(t, relatedCaseFetchCount, searcher.matchCount)
	assert.Len(t, cases, relatedCaseTopN)
	assert.Equal(t, "Arbeidszaak over ontslag.", result.Summary)
	require.Len(t, result.FactualClaims, 1)
	assert.Equal(t, []string{"DOC-1"}, result.FactualClaims[0].SourceIDs)
}

func manyCases(n int) []models.RetrievedCase {
	cases := make([]models.RetrievedCase, 0, n)
	for i := 0; i < n; i++ {
		ecli := "ECLI:NL:HR:2020:123"
		cases = append(cases, models.RetrievedCase{ECLI: ecli, Score: 1.0 - float64(i)*0.01, Content: "snippet"})
	}
	return cases
}

func TestAnalyzeWithoutAPIKey(t *testing.T) {
	svc := NewAnalysisService()
	_, err := svc.Analyze(context.Background(), "tekst", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyzeParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output_text": "geen json"})
	}))
	defer server.Close()

	svc := NewAnalysisService(AnalysisWithCompletion(server.URL, "key", ""))
	_, err := svc.Analyze(context.Background(), "tekst", nil)
	assert.ErrorIs(t, err, ErrSynthesisParse)
}

func TestAnalyzeRequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewAnalysisService(AnalysisWithCompletion(server.URL, "key", ""))
	_, err := svc.Analyze(context.Background(), "tekst", nil)
	assert.ErrorIs(t, err, ErrSynthesisRequest)
}
