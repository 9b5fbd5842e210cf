package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/normindex/normindex/core"
)

// extractPDF reads the text layer of each page.
// Per-page decode failures are tolerated; the page is recorded with zero
// characters so the density policy can see it.
func extractPDF(data []byte) (string, []core.PageInfo, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	pages := make([]core.PageInfo, 0, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, core.PageInfo{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, core.PageInfo{Number: i})
			continue
		}

		text = normalizePlainText(text)
		pages = append(pages, core.PageInfo{Number: i, Chars: len(text)})

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), pages, nil
}
