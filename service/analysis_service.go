package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"jurislens-backend/models"
)

var (
	ErrSynthesisRequest = errors.New("analysis request failed")
	ErrSynthesisParse   = errors.New("analysis response is not valid JSON")
	ErrSynthesisSchema  = errors.New("analysis response missing bronnen")
)

const (
	// relatedCaseFetchCount chunks are requested from the corpus; after
	// deduplication the best relatedCaseTopN decisions feed the prompt.
	relatedCaseFetchCount = 60
	relatedCaseTopN       = 10

	searchQueryChars = 1200
	caseSnippetChars = 900

	weakPointCap = 10
	questionCap  = 10
	advisoryCap  = 2
)

// Embedder produces a fixed-dimension vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CaseSearcher retrieves ranked, deduplicated case-law hits for an
// embedded query.
type CaseSearcher interface {
	Search(ctx context.Context, queryText string, embedding []float64, matchCount int) ([]models.RetrievedCase, error)
}

// AnalysisService turns an uploaded document's text into a validated
// AnalysisResult: embed, retrieve related case law, prompt the model for
// structured JSON, then normalize the response.
type AnalysisService struct {
	embedder Embedder
	searcher CaseSearcher

	httpClient       *http.Client
	baseURL          string
	apiKey           string
	model            string
	maxDocumentChars int
}

// AnalysisServiceOption is a functional option for AnalysisService.
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithEmbedder sets the embedding client.
func AnalysisWithEmbedder(embedder Embedder) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.embedder = embedder
	}
}

// AnalysisWithSearcher sets the case searcher.
func AnalysisWithSearcher(searcher CaseSearcher) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.searcher = searcher
	}
}

// AnalysisWithCompletion sets the completion endpoint settings.
func AnalysisWithCompletion(baseURL, apiKey, model string) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
		if model != "" {
			s.model = model
		}
		s.apiKey = apiKey
	}
}

// AnalysisWithDocumentCeiling sets the document-text character ceiling.
func AnalysisWithDocumentCeiling(maxChars int) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if maxChars > 0 {
			s.maxDocumentChars = maxChars
		}
	}
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		httpClient:       &http.Client{Timeout: 120 * time.Second},
		baseURL:          defaultOpenAIBaseURL,
		model:            "gpt-4o-mini",
		maxDocumentChars: 25000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// systemPrompt fixes the output contract: strict JSON, facts separated
// from hypotheses, every substantive bullet cited, no invented ECLIs.
const systemPrompt = `
Je bent een Nederlandse juridische intake-assistent voor advocaten.

Doel: snel, betrouwbaar en controleerbaar samenvatten + verweergerichte intake-vragen formuleren.
Je werkt met 2 bronnen:
(1) DOCUMENTTEKST (van client) en (2) TOP GERELATEERDE JURISPRUDENTIE (snippets met ECLI).

CRUCIALE REGELS (streng):
- Antwoord ALLEEN met geldige JSON die exact het schema volgt. Geen markdown, geen extra tekst.
- Scheid strikt:
  * "kernfeiten": alleen feiten die letterlijk/duidelijk uit DOCUMENTTEKST volgen.
  * "juridische_issues", "zwakke_punten", "verweerstrategie_aanzet": interpretatie/hypotheses (noem het nooit als feit).
- Als een essentieel feit ontbreekt of onduidelijk is: zet het in "onduidelijkheden" en stel gerichte vragen.
- Elke inhoudelijke bullet in "kernfeiten", "zwakke_punten", "juridische_issues" en "verweerstrategie_aanzet"
  MOET ten minste 1 bronverwijzing hebben in "bronnen" (document of ecli).
- Gebruik alleen jurisprudentie die in de meegegeven TOP-resultaten staat. Geen externe kennis of verzonnen ECLI's.
- Wees bondig, praktisch en verweer-gericht. Max 10 zwakke punten. Max 10 vragen.
- Bij "extra_nuttig_voor_advocaat": exact 2 items, praktisch uitvoerbaar.

SCHEMA (exact):
{
  "zaak_samenvatting": "string",
  "kernfeiten": [{"tekst":"string","source_ids":["string"]}],
  "juridische_issues": [{"issue":"string","toelichting":"string","source_ids":["string"]}],
  "zwakke_punten": [{"punt":"string","source_ids":["string"]}],
  "onduidelijkheden": [{"punt":"string","impact":"string","source_ids":["string"]}],
  "extra_vragen_verweer": [{"vraag":"string","waarom":"string","prioriteit":"hoog|middel|laag","source_ids":["string"]}],
  "verweerstrategie_aanzet": [{"strategie":"string","source_ids":["string"]}],
  "extra_nuttig_voor_advocaat": [{"titel":"string","toelichting":"string"}],
  "bronnen": [{"id":"string","type":"document|ecli","ref":"string","loc":"string","quote":"string"}]
}

BRON-ID REGELS:
- Gebruik bron-ids die jij zelf aanmaakt en uniek zijn binnen dit antwoord.
- Formaat:
  * Document: "DOC-1", "DOC-2", ...
  * ECLI snippet: "ECLI-1", "ECLI-2", ...
- "bronnen[].ref":
  * document: altijd "doc"
  * ecli: de ECLI string (bijv. "ECLI:NL:HR:2020:123")
- "bronnen[].loc":
  * document: "chars:start-end" (schat mag; consistent blijven)
  * ecli: "resultaatIndex:X" of "chunk:ID" als beschikbaar
- "bronnen[].quote": korte letterlijke quote (max ~220 tekens), geen parafrase.
`

// buildCaseContext renders retrieved cases as prompt blocks, one per
// decision, tagged R1..Rn in retrieval-rank order.
func buildCaseContext(cases []models.RetrievedCase) string {
	blocks := make([]string, 0, len(cases))
	for i, item := range cases {
		scoreText := "n.v.t."
		if !math.IsNaN(item.Score) && !math.IsInf(item.Score, 0) {
			scoreText = fmt.Sprintf("%.3f", item.Score)
		}
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("RESULTAAT_ID: R%d", i+1),
			"ECLI: " + orUnknown(item.ECLI),
			"Titel: " + orUnknown(item.Title),
			"Rechtbank: " + orUnknown(item.Court),
			"Datum: " + orUnknown(item.DecisionDate),
			"Score: " + scoreText,
			"SNIPPET: " + LimitText(item.Content, caseSnippetChars),
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Onbekend"
	}
	return s
}

// rawAnalysis mirrors the JSON schema the model is asked to produce.
type rawAnalysis struct {
	Summary           string                    `json:"zaak_samenvatting"`
	FactualClaims     []models.FactualClaim     `json:"kernfeiten"`
	LegalIssues       []models.LegalIssue       `json:"juridische_issues"`
	WeakPoints        []models.WeakPoint        `json:"zwakke_punten"`
	Ambiguities       []models.Ambiguity        `json:"onduidelijkheden"`
	FollowUpQuestions []models.FollowUpQuestion `json:"extra_vragen_verweer"`
	StrategyNotes     []models.StrategyNote     `json:"verweerstrategie_aanzet"`
	AdvisoryNotes     []models.AdvisoryNote     `json:"extra_nuttig_voor_advocaat"`
	Sources           []models.Source           `json:"bronnen"`
}

// decodeAnalysisJSON parses model output in two stages: a strict parse
// of the whole body, then a parse of the first-{ to last-} span. Model
// output wrapped in prose is expected, not exceptional, so failure is a
// value here rather than an error.
func decodeAnalysisJSON(raw string) (*rawAnalysis, bool) {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return &parsed, true
	}
	span, ok := extractJSONObject(raw)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, false
	}
	return &parsed, true
}

func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// normalizeAnalysis validates the parsed payload into the strict internal
// shape. An empty source list invalidates the whole response; findings
// with invalid source_ids keep the record and silently drop the bad ids.
func normalizeAnalysis(parsed *rawAnalysis) (*models.AnalysisResult, error) {
	sources := make([]models.Source, 0, len(parsed.Sources))
	for _, src := range parsed.Sources {
		src.ID = strings.TrimSpace(src.ID)
		src.Type = strings.ToLower(strings.TrimSpace(src.Type))
		src.Ref = strings.TrimSpace(src.Ref)
		src.Loc = strings.TrimSpace(src.Loc)
		src.Quote = strings.TrimSpace(src.Quote)
		if src.ID == "" || src.Type == "" || src.Ref == "" || src.Loc == "" || src.Quote == "" {
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, ErrSynthesisSchema
	}

	validIDs := make(map[string]bool, len(sources))
	for _, src := range sources {
		validIDs[src.ID] = true
	}
	keepValidIDs := func(ids []string) []string {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id != "" && validIDs[id] {
				kept = append(kept, id)
			}
		}
		return kept
	}

	result := &models.AnalysisResult{
		Summary:           strings.TrimSpace(parsed.Summary),
		FactualClaims:     []models.FactualClaim{},
		LegalIssues:       []models.LegalIssue{},
		WeakPoints:        []models.WeakPoint{},
		Ambiguities:       []models.Ambiguity{},
		FollowUpQuestions: []models.FollowUpQuestion{},
		StrategyNotes:     []models.StrategyNote{},
		AdvisoryNotes:     []models.AdvisoryNote{},
		Sources:           sources,
	}

	for _, item := range parsed.FactualClaims {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.FactualClaims = append(result.FactualClaims, item)
	}

	for _, item := range parsed.LegalIssues {
		item.Issue = strings.TrimSpace(item.Issue)
		item.Explanation = strings.TrimSpace(item.Explanation)
		if item.Issue == "" && item.Explanation == "" {
			continue
		}
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.LegalIssues = append(result.LegalIssues, item)
	}

	for _, item := range parsed.WeakPoints {
		item.Point = strings.TrimSpace(item.Point)
		if item.Point == "" {
			continue
		}
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.WeakPoints = append(result.WeakPoints, item)
	}
	if len(result.WeakPoints) > weakPointCap {
		result.WeakPoints = result.WeakPoints[:weakPointCap]
	}

	for _, item := range parsed.Ambiguities {
		item.Point = strings.TrimSpace(item.Point)
		item.Impact = strings.TrimSpace(item.Impact)
		if item.Point == "" && item.Impact == "" {
			continue
		}
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.Ambiguities = append(result.Ambiguities, item)
	}

	for _, item := range parsed.FollowUpQuestions {
		item.Question = strings.TrimSpace(item.Question)
		item.Why = strings.TrimSpace(item.Why)
		if item.Question == "" {
			continue
		}
		item.Priority = normalizePriority(item.Priority)
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.FollowUpQuestions = append(result.FollowUpQuestions, item)
	}
	if len(result.FollowUpQuestions) > questionCap {
		result.FollowUpQuestions = result.FollowUpQuestions[:questionCap]
	}

	for _, item := range parsed.StrategyNotes {
		item.Strategy = strings.TrimSpace(item.Strategy)
		if item.Strategy == "" {
			continue
		}
		item.SourceIDs = keepValidIDs(item.SourceIDs)
		result.StrategyNotes = append(result.StrategyNotes, item)
	}

	for _, item := range parsed.AdvisoryNotes {
		item.Title = strings.TrimSpace(item.Title)
		item.Explanation = strings.TrimSpace(item.Explanation)
		if item.Title == "" || item.Explanation == "" {
			continue
		}
		result.AdvisoryNotes = append(result.AdvisoryNotes, item)
	}
	if len(result.AdvisoryNotes) > advisoryCap {
		result.AdvisoryNotes = result.AdvisoryNotes[:advisoryCap]
	}

	return result, nil
}

// normalizePriority maps any unrecognized or missing priority to middel.
func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case models.PriorityHigh:
		return models.PriorityHigh
	case models.PriorityLow:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// Analyze prompts the model with the document text and the related cases
// and returns the validated analysis.
func (s *AnalysisService) Analyze(
	ctx context.Context,
	documentText string,
	relatedCases []models.RetrievedCase,
) (*models.AnalysisResult, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}

	caseContext := buildCaseContext(relatedCases)
	if caseContext == "" {
		caseContext = "Niet gevonden."
	}

	userPrompt := fmt.Sprintf(`
Analyseer dit dossier voor intake en verweerstrategie. Werk in deze volgorde:
1) Extract "kernfeiten" (alleen uit DOCUMENTTEKST).
2) Noteer "onduidelijkheden" + impact.
3) Formuleer "juridische_issues" (hypotheses) en "zwakke_punten".
4) Stel "extra_vragen_verweer" met prioriteit (hoog als antwoord strategie/deadline/risico bepaalt).
5) Geef een korte "verweerstrategie_aanzet" (hypotheses, geen zekerheid).
6) Voeg bronnen toe (DOC-* en ECLI-*) met quotes.

DOCUMENTTEKST:
%s

TOP GERELATEERDE JURISPRUDENTIE (snippets):
%s
`, LimitText(documentText, s.maxDocumentChars), caseContext)

	rawText, err := callResponsesAPI(ctx, s.httpClient, s.baseURL, s.apiKey, s.model, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisRequest, err)
	}

	parsed, ok := decodeAnalysisJSON(rawText)
	if !ok {
		return nil, ErrSynthesisParse
	}
	return normalizeAnalysis(parsed)
}

// AnalyzeDocument runs the full pipeline for an extracted document text:
// embed, retrieve related case law, analyze. The returned cases are the
// ones the analysis was grounded on.
func (s *AnalysisService) AnalyzeDocument(
	ctx context.Context,
	documentText string,
) ([]models.RetrievedCase, *models.AnalysisResult, error) {
	if s.embedder == nil || s.searcher == nil {
		return nil, nil, errors.New("analysis service missing collaborators")
	}

	embedding, err := s.embedder.Embed(ctx, documentText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed document: %w", err)
	}

	cases, err := s.searcher.Search(ctx, LimitText(documentText, searchQueryChars), embedding, relatedCaseFetchCount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve related cases: %w", err)
	}
	if len(cases) > relatedCaseTopN {
		cases = cases[:relatedCaseTopN]
	}

	result, err := s.Analyze(ctx, documentText, cases)
	if err != nil {
		return nil, nil, err
	}
	return cases, result, nil
}
