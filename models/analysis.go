package models

// Priority values for follow-up questions. The model is instructed to
// answer with hoog|middel|laag; anything else normalizes to PriorityMedium.
const (
	PriorityHigh   = "hoog"
	PriorityMedium = "middel"
	PriorityLow    = "laag"
)

// Source types as declared by the model in its bronnen list.
const (
	SourceTypeDocument = "document"
	SourceTypeECLI     = "ecli"
)

// Source is a model-declared citation target. IDs follow the DOC-n /
// ECLI-n pattern and are unique within one analysis response. Ref is the
// literal "doc" for document sources or the ECLI string for case sources.
type Source struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Ref   string `json:"ref"`
	Loc   string `json:"loc"`
	Quote string `json:"quote"`
}

// FactualClaim is a statement that follows directly from the document text.
type FactualClaim struct {
	Text      string   `json:"tekst"`
	SourceIDs []string `json:"source_ids"`
}

// LegalIssue is a hypothesis about a legal question raised by the document.
type LegalIssue struct {
	Issue       string   `json:"issue"`
	Explanation string   `json:"toelichting"`
	SourceIDs   []string `json:"source_ids"`
}

// WeakPoint flags a vulnerability in the client's position.
type WeakPoint struct {
	Point     string   `json:"punt"`
	SourceIDs []string `json:"source_ids"`
}

// Ambiguity records a missing or unclear essential fact and its impact.
type Ambiguity struct {
	Point     string   `json:"punt"`
	Impact    string   `json:"impact"`
	SourceIDs []string `json:"source_ids"`
}

// FollowUpQuestion is an intake question for the lawyer, tagged with a
// priority from the Priority* constants.
type FollowUpQuestion struct {
	Question  string   `json:"vraag"`
	Why       string   `json:"waarom"`
	Priority  string   `json:"prioriteit"`
	SourceIDs []string `json:"source_ids"`
}

// StrategyNote is a defence-strategy starting point, never a conclusion.
type StrategyNote struct {
	Strategy  string   `json:"strategie"`
	SourceIDs []string `json:"source_ids"`
}

// AdvisoryNote is one of the at-most-two "extra helpful" practical notes.
// Both fields must be present for the note to be kept.
type AdvisoryNote struct {
	Title       string `json:"titel"`
	Explanation string `json:"toelichting"`
}

// AnalysisResult is the validated, normalized analysis of one uploaded
// document. It is built once per request, never persisted, and every
// source_id in it refers to an entry in Sources.
type AnalysisResult struct {
	Summary           string             `json:"zaak_samenvatting"`
	FactualClaims     []FactualClaim     `json:"kernfeiten"`
	LegalIssues       []LegalIssue       `json:"juridische_issues"`
	WeakPoints        []WeakPoint        `json:"zwakke_punten"`
	Ambiguities       []Ambiguity        `json:"onduidelijkheden"`
	FollowUpQuestions []FollowUpQuestion `json:"extra_vragen_verweer"`
	StrategyNotes     []StrategyNote     `json:"verweerstrategie_aanzet"`
	AdvisoryNotes     []AdvisoryNote     `json:"extra_nuttig_voor_advocaat"`
	Sources           []Source           `json:"bronnen"`
}
