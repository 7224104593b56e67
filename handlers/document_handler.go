package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"jurislens-backend/extract"
	"jurislens-backend/models"
	"jurislens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// excerptChars caps each related case's content excerpt in the response
// payload; the full snippets already went into the prompt.
const excerptChars = 1800

// DocumentAnalyzer runs the full document pipeline: embed, retrieve
// related case law, synthesize findings.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, documentText string) ([]models.RetrievedCase, *models.AnalysisResult, error)
}

// DocumentHandler handles HTTP requests for document analysis.
type DocumentHandler struct {
	analyzer         DocumentAnalyzer
	extractText      func(filename, mimeType string, data []byte) (string, error)
	maxFileSize      int64
	maxDocumentChars int
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(analyzer DocumentAnalyzer, maxDocumentChars int) *DocumentHandler {
	if maxDocumentChars <= 0 {
		maxDocumentChars = 25000
	}
	return &DocumentHandler{
		analyzer:         analyzer,
		extractText:      extract.Text,
		maxFileSize:      15 * 1024 * 1024, // 15MB
		maxDocumentChars: maxDocumentChars,
	}
}

type relatedCaseView struct {
	ECLI           string  `json:"ecli"`
	Title          string  `json:"title"`
	Court          string  `json:"court"`
	DecisionDate   string  `json:"decision_date"`
	Score          float64 `json:"score"`
	ContentExcerpt string  `json:"content_excerpt"`
}

// AnalyzeDocument handles POST /api/documents/analyze.
func (h *DocumentHandler) AnalyzeDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Geen bestand ontvangen.",
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Bestand is te groot.",
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !extract.Allowed(fileHeader.Filename, mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Alleen PDF en DOCX documenten zijn toegestaan.",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Bestand kon niet worden geopend.",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Bestand kon niet worden gelezen.",
		})
		return
	}

	text, err := h.extractText(fileHeader.Filename, mimeType, data)
	if err != nil {
		log.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("text extraction failed")
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":    false,
				"error": "Alleen PDF en DOCX documenten zijn toegestaan.",
			})
		case errors.Is(err, extract.ErrPDFDecode):
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":    false,
				"error": "PDF kon niet worden gelezen. Probeer het bestand opnieuw op te slaan of upload een DOCX-versie.",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "Tekst kon niet worden uitgelezen.",
			})
		}
		return
	}
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Geen tekst gevonden in het document.",
		})
		return
	}

	cases, result, err := h.analyzer.AnalyzeDocument(c.Request.Context(), text)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("document analysis failed")
		if errors.Is(err, service.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"error": "Server is niet geconfigureerd.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Analyse is mislukt. Probeer het later opnieuw.",
		})
		return
	}

	related := make([]relatedCaseView, 0, len(cases))
	for _, item := range cases {
		related = append(related, relatedCaseView{
			ECLI:           item.ECLI,
			Title:          item.Title,
			Court:          item.Court,
			DecisionDate:   item.DecisionDate,
			Score:          item.Score,
			ContentExcerpt: service.LimitText(item.Content, excerptChars),
		})
	}

	documentText := service.LimitText(text, h.maxDocumentChars)

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"analysis_id": uuid.New().String(),
		"file": gin.H{
			"filename": fileHeader.Filename,
			"mime":     mimeType,
			"size":     fileHeader.Size,
		},
		"extractedTextLength": len([]rune(text)),
		"documentText":        documentText,
		"relatedCases":        related,
		"findings":            result,
	})
}
