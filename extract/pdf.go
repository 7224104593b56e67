package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfText decodes a PDF with an ordered list of decode attempts, from
// lenient to none, mirroring malformed exports seen in the wild. Every
// attempt that yields readable text wins; when all fail the caller gets
// ErrPDFDecode and maps it to a user-facing "try a different export".
func pdfText(data []byte) (string, error) {
	attempts := []func() *model.Configuration{
		func() *model.Configuration {
			conf := model.NewDefaultConfiguration()
			conf.ValidationMode = model.ValidationRelaxed
			return conf
		},
		func() *model.Configuration {
			conf := model.NewDefaultConfiguration()
			conf.ValidationMode = model.ValidationNone
			return conf
		},
		func() *model.Configuration { return nil },
	}

	var lastErr error
	for _, confFn := range attempts {
		text, err := pdfTextWithConf(data, confFn())
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFDecode, lastErr)
	}
	return "", nil
}

// pdfTextWithConf runs one decode attempt. pdfcpu works on files, so the
// upload is staged in a scratch directory for the duration of the call.
func pdfTextWithConf(data []byte, conf *model.Configuration) (string, error) {
	tempDir, err := os.MkdirTemp("", "jurislens-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "upload.pdf")
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage pdf: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	outDir := filepath.Join(tempDir, "pages")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create pages dir: %w", err)
	}
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract pdf content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read pages dir: %w", err)
	}

	pageTexts := make(map[int]string, pdfCtx.PageCount)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = contentStreamText(content)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pdfCtx.PageCount; pageNum++ {
		if text := strings.TrimSpace(pageTexts[pageNum]); text != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(text)
		}
	}
	return sanitizeText(builder.String()), nil
}

// contentStreamText pulls string literals out of a decoded PDF content
// stream. It reads balanced parenthesized literals (Tj/TJ operands) in
// order, which recovers the text layer of text-based PDFs. Scanned PDFs
// have no literals and come back empty, which the upload handler rejects.
func contentStreamText(stream []byte) string {
	var builder strings.Builder
	depth := 0
	escaped := false
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(literal.String())
			literal.Reset()
		}
	}

	for i := 0; i < len(stream); i++ {
		c := stream[i]
		if depth == 0 {
			if c == '(' {
				depth = 1
			}
			continue
		}
		if escaped {
			switch c {
			case 'n':
				literal.WriteByte('\n')
			case 't':
				literal.WriteByte('\t')
			case 'r', 'f', 'b':
				literal.WriteByte(' ')
			default:
				literal.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '(':
			depth++
			literal.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				flush()
			} else {
				literal.WriteByte(c)
			}
		default:
			literal.WriteByte(c)
		}
	}
	return builder.String()
}
