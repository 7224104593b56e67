// Package extract turns uploaded document bytes into plain text.
// Only PDF and DOCX uploads are accepted; the decision is made on the
// file extension first and the declared MIME type as a fallback.
package extract

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrPDFDecode       = errors.New("pdf could not be decoded")
	ErrDocxDecode      = errors.New("docx could not be decoded")
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var allowedMimeTypes = map[string]bool{
	mimePDF:  true,
	mimeDocx: true,
}

// Extension returns the lowercased extension of filename, including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

// Allowed reports whether a file with the given name and declared MIME
// type may be analyzed.
func Allowed(filename, mimeType string) bool {
	switch Extension(filename) {
	case ".pdf", ".docx":
		return true
	}
	return allowedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// Text extracts plain text from the uploaded bytes. The returned text is
// sanitized; an empty result means the file held no readable text.
func Text(filename, mimeType string, data []byte) (string, error) {
	ext := Extension(filename)
	mime := strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case ext == ".pdf" || mime == mimePDF:
		return pdfText(data)
	case ext == ".docx" || mime == mimeDocx:
		return docxText(data)
	}
	return "", ErrUnsupportedType
}

var collapseBlankLines = regexp.MustCompile(`\n{3,}`)

// sanitizeText strips NUL bytes, folds CRLF and squeezes runs of blank
// lines so the text is safe to embed and prompt with.
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = collapseBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
