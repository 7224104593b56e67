package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"jurislens-backend/models"
	"jurislens-backend/storage"
)

var (
	// ErrNoRulingSource is returned when the ruling text could not be
	// obtained from any source (public feed, database, archive).
	ErrNoRulingSource = errors.New("ruling text unavailable from all sources")
)

// CaseDocumentStore provides case metadata lookup by ECLI.
type CaseDocumentStore interface {
	GetByECLI(ctx context.Context, ecli string) (*models.CaseDocument, error)
}

// CaseDetail is the full detail view for a single ruling.
type CaseDetail struct {
	ECLI            string   `json:"ecli"`
	Title           string   `json:"title,omitempty"`
	Court           string   `json:"court,omitempty"`
	DecisionDate    string   `json:"decision_date,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Summary         string   `json:"inhoudsindicatie,omitempty"`
	Deeplink        string   `json:"deeplink,omitempty"`
	RulingHTML      string   `json:"uitspraak_html,omitempty"`
	Content         []string `json:"content,omitempty"`
}

// CaseDetailService resolves the full text of a ruling. The public feed
// is tried first; the database copy and the object-storage archive act
// as fallbacks for rulings the feed no longer serves.
type CaseDetailService struct {
	store      CaseDocumentStore
	archive    storage.Storage
	httpClient *http.Client
	baseURL    string
}

// CaseDetailOption configures a CaseDetailService.
type CaseDetailOption func(*CaseDetailService)

// CaseDetailWithArchive sets the object-storage archive fallback.
func CaseDetailWithArchive(archive storage.Storage) CaseDetailOption {
	return func(s *CaseDetailService) {
		s.archive = archive
	}
}

// CaseDetailWithBaseURL overrides the public rulings feed URL.
func CaseDetailWithBaseURL(baseURL string) CaseDetailOption {
	return func(s *CaseDetailService) {
		s.baseURL = baseURL
	}
}

// NewCaseDetailService creates a case detail service.
func NewCaseDetailService(store CaseDocumentStore, opts ...CaseDetailOption) *CaseDetailService {
	s := &CaseDetailService{
		store: store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://data.rechtspraak.nl/uitspraken/content",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns the detail view for an ECLI. It fails with
// repository.ErrCaseNotFound when the ECLI is unknown and with
// ErrNoRulingSource when no copy of the ruling text can be obtained.
func (s *CaseDetailService) Get(ctx context.Context, ecli string) (*CaseDetail, error) {
	doc, err := s.store.GetByECLI(ctx, ecli)
	if err != nil {
		return nil, err
	}

	detail := &CaseDetail{
		ECLI:            doc.ECLI,
		Title:           doc.Title,
		Court:           doc.Court,
		DecisionDate:    doc.DecisionDate,
		PublicationDate: doc.PublicationDate,
		Summary:         doc.Summary,
		Deeplink:        doc.Deeplink,
	}

	rawXML, err := s.rulingXML(ctx, doc)
	if err != nil {
		return nil, err
	}

	detail.RulingHTML = extractRulingHTML(rawXML)
	detail.Content = rulingParagraphs(rawXML)

	return detail, nil
}

// rulingXML tries each source in order: public feed, stored database
// copy, gzip archive in object storage.
func (s *CaseDetailService) rulingXML(ctx context.Context, doc *models.CaseDocument) (string, error) {
	if xml, err := s.fetchPublicXML(ctx, doc.ECLI); err == nil && strings.TrimSpace(xml) != "" {
		return xml, nil
	} else if err != nil {
		log.Warn().Err(err).Str("ecli", doc.ECLI).Msg("public ruling feed fetch failed, trying fallbacks")
	}

	if doc.RawXML != nil && strings.TrimSpace(*doc.RawXML) != "" {
		return *doc.RawXML, nil
	}

	if s.archive != nil {
		if xml, err := s.fetchArchivedXML(ctx, doc.ECLI); err == nil && strings.TrimSpace(xml) != "" {
			return xml, nil
		} else if err != nil {
			log.Warn().Err(err).Str("ecli", doc.ECLI).Msg("archive fetch failed")
		}
	}

	return "", ErrNoRulingSource
}

func (s *CaseDetailService) fetchPublicXML(ctx context.Context, ecli string) (string, error) {
	reqURL := fmt.Sprintf("%s?id=%s", s.baseURL, url.QueryEscape(ecli))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ruling feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (s *CaseDetailService) fetchArchivedXML(ctx context.Context, ecli string) (string, error) {
	rc, err := s.archive.Download(ctx, storage.RulingKey(ecli))
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	if isGzip(data) {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		defer gr.Close()

		data, err = io.ReadAll(gr)
		if err != nil {
			return "", err
		}
	}

	return string(data), nil
}

// isGzip checks the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

var (
	xmlDeclRe    = regexp.MustCompile(`(?s)<\?xml.*?\?>`)
	uitspraakRe  = regexp.MustCompile(`(?s)<uitspraak\b[^>]*>(.*)</uitspraak>`)
	conclusieRe  = regexp.MustCompile(`(?s)<conclusie\b[^>]*>(.*)</conclusie>`)
	openTagRe    = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\.([a-zA-Z][a-zA-Z0-9.]*)(\s[^>]*)?>`)
	closeTagRe   = regexp.MustCompile(`</([a-zA-Z][a-zA-Z0-9]*)\.([a-zA-Z][a-zA-Z0-9.]*)>`)
	paraRe       = regexp.MustCompile(`<para(\s[^>]*)?/>`)
	paraOpenRe   = regexp.MustCompile(`<para(\s[^>]*)?>`)
	paraTextRe   = regexp.MustCompile(`(?s)<para(?:\s[^>]*)?>(.*?)</para>`)
	innerTagRe   = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// extractRulingHTML converts the ruling XML body to renderable HTML.
// Namespaced XML elements become classed divs so a frontend can style
// sections without knowing the schema.
func extractRulingHTML(rawXML string) string {
	body := ""
	if m := uitspraakRe.FindStringSubmatch(rawXML); m != nil {
		body = m[1]
	} else if m := conclusieRe.FindStringSubmatch(rawXML); m != nil {
		body = m[1]
	}

	if strings.TrimSpace(body) == "" {
		return ""
	}

	html := xmlDeclRe.ReplaceAllString(body, "")
	html = openTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := openTagRe.FindStringSubmatch(tag)
		class := strings.ToLower(m[1] + "-" + strings.ReplaceAll(m[2], ".", "-"))
		return fmt.Sprintf(`<div class=%q>`, class)
	})
	html = closeTagRe.ReplaceAllString(html, "</div>")
	html = paraRe.ReplaceAllString(html, "<br/>")
	html = paraOpenRe.ReplaceAllString(html, "<p>")
	html = strings.ReplaceAll(html, "</para>", "</p>")

	return fmt.Sprintf(`<section class="uitspraak-root">%s</section>`, strings.TrimSpace(html))
}

// rulingParagraphs extracts the plain-text paragraphs of the ruling.
func rulingParagraphs(rawXML string) []string {
	body := ""
	if m := uitspraakRe.FindStringSubmatch(rawXML); m != nil {
		body = m[1]
	} else if m := conclusieRe.FindStringSubmatch(rawXML); m != nil {
		body = m[1]
	}

	if body == "" {
		return nil
	}

	var paragraphs []string
	for _, m := range paraTextRe.FindAllStringSubmatch(body, -1) {
		text := innerTagRe.ReplaceAllString(m[1], " ")
		text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return paragraphs
}
