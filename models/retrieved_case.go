package models

// RetrievedCase is one deduplicated case-law hit from the chunk corpus.
// ECLI identifies the decision; Score is the highest score seen across
// all chunks of that decision returned by the search function.
type RetrievedCase struct {
	ECLI         string  `json:"ecli"`
	Title        string  `json:"title"`
	Court        string  `json:"court"`
	DecisionDate string  `json:"decision_date"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}
