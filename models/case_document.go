package models

// CaseDocument is the stored metadata for one published decision in the
// documents table. RawXML holds the ruling XML when it was ingested along
// with the metadata; it can be empty for rows whose XML lives only in the
// object-storage archive.
type CaseDocument struct {
	ECLI            string  `json:"ecli"`
	Title           string  `json:"title"`
	Court           string  `json:"court"`
	DecisionDate    string  `json:"decision_date"`
	PublicationDate string  `json:"publication_date"`
	Summary         string  `json:"inhoudsindicatie"`
	FullText        *string `json:"full_text,omitempty"`
	Deeplink        string  `json:"deeplink"`
	RawXML          *string `json:"-"`
}
