package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxText extracts the raw text of a .docx body, one line per
// paragraph or table.
func docxText(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocxDecode, err)
	}

	var builder strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			builder.WriteString(v.String())
			builder.WriteByte('\n')
		case *docx.Table:
			builder.WriteString(v.String())
			builder.WriteByte('\n')
		}
	}
	return sanitizeText(builder.String()), nil
}
