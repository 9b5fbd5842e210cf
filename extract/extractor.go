package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/normindex/normindex/ai"
	"github.com/normindex/normindex/core"
)

const (
	// DefaultMinDensity is the minimum average characters per page below
	// which native extraction is considered insufficient and the optical
	// fallback runs. Tuned for Russian normative documents, which are
	// text-dense; treat as configuration when retargeting.
	DefaultMinDensity = 200

	// DefaultDPI is the page rendering resolution for the fallback.
	DefaultDPI = 300
)

// format is the internal dispatch tag for extraction strategies.
type format int

const (
	formatUnknown format = iota
	formatPDF
	formatDOCX
	formatXLSX
	formatPlain
	formatImage
)

// Extractor converts raw document bytes into plain text plus structural
// hints. Native text strategies run first; when the recovered text is too
// sparse for the page count, the document is retried through optical
// recognition.
type Extractor struct {
	recognizer ai.Recognizer
	minDensity int
	dpi        int
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinDensity sets the chars-per-page threshold for the OCR fallback.
func WithMinDensity(chars int) Option {
	return func(e *Extractor) {
		if chars >= 0 {
			e.minDensity = chars
		}
	}
}

// WithDPI sets the page rendering resolution for recognition.
func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor. The recognizer may be nil, in which case the
// optical fallback is disabled and sparse documents fail with ReasonEmpty.
func New(recognizer ai.Recognizer, opts ...Option) *Extractor {
	e := &Extractor{
		recognizer: recognizer,
		minDensity: DefaultMinDensity,
		dpi:        DefaultDPI,
		logger:     slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract converts a source document into extracted content.
// It is a pure transform: nothing is persisted, and the returned Method
// tag records which strategy produced the text.
func (e *Extractor) Extract(ctx context.Context, doc *core.SourceDocument) (*core.ExtractedContent, error) {
	if doc == nil || len(doc.Data) == 0 {
		return nil, newError(ReasonEmpty, pathOf(doc), ErrEmptyDocument, nil)
	}

	f := detectFormat(doc.MimeType, doc.Path)

	var (
		text  string
		pages []core.PageInfo
		err   error
	)

	switch f {
	case formatPDF:
		text, pages, err = extractPDF(doc.Data)
	case formatDOCX:
		text, err = extractDOCX(doc.Data)
		pages = singlePage(text)
	case formatXLSX:
		text, err = extractXLSX(doc.Data)
		pages = singlePage(text)
	case formatPlain:
		text = normalizePlainText(string(doc.Data))
		pages = singlePage(text)
	case formatImage:
		// No text layer to try; straight to recognition.
		return e.recognize(ctx, doc, nil)
	default:
		return nil, newError(ReasonUnsupported, doc.Path, ErrUnsupportedFormat, nil)
	}

	if err != nil {
		return nil, newError(ReasonUnreadable, doc.Path, ErrUnreadable, err)
	}

	if e.sparse(text, pages) {
		e.logger.Info("native text below density threshold, trying recognition",
			"path", doc.Path, "chars", len(text), "pages", len(pages))
		content, ocrErr := e.recognize(ctx, doc, pages)
		if ocrErr == nil {
			return content, nil
		}
		e.logger.Warn("recognition fallback failed", "path", doc.Path, "err", ocrErr)
		// Keep whatever the native pass recovered, if anything.
	}

	if strings.TrimSpace(text) == "" {
		return nil, newError(ReasonEmpty, doc.Path, ErrEmptyDocument, nil)
	}

	return &core.ExtractedContent{
		DocumentId: doc.Id,
		Text:       text,
		Pages:      pages,
		Method:     core.ExtractionNative,
	}, nil
}

// sparse reports whether extracted text density falls below the threshold.
func (e *Extractor) sparse(text string, pages []core.PageInfo) bool {
	if e.minDensity == 0 {
		return false
	}
	pageCount := len(pages)
	if pageCount == 0 {
		pageCount = 1
	}
	return len(strings.TrimSpace(text))/pageCount < e.minDensity
}

func (e *Extractor) recognize(ctx context.Context, doc *core.SourceDocument, nativePages []core.PageInfo) (*core.ExtractedContent, error) {
	if e.recognizer == nil {
		return nil, newError(ReasonEmpty, doc.Path, ErrEmptyDocument, nil)
	}

	result, err := e.recognizer.Recognize(ctx, ai.RecognitionRequest{
		Data:     doc.Data,
		MimeType: doc.MimeType,
		DPI:      e.dpi,
	})
	if err != nil {
		return nil, newError(ReasonUnreadable, doc.Path, ErrUnreadable, err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return nil, newError(ReasonEmpty, doc.Path, ErrEmptyDocument, nil)
	}

	pages := make([]core.PageInfo, len(result.Pages))
	for i, page := range result.Pages {
		pages[i] = core.PageInfo{Number: page.Number, Chars: len(page.Text)}
	}
	if len(pages) == 0 {
		pages = nativePages
	}

	return &core.ExtractedContent{
		DocumentId: doc.Id,
		Text:       text,
		Pages:      pages,
		Method:     core.ExtractionOCRFallback,
	}, nil
}

// detectFormat infers the extraction strategy from mime type, falling back
// to the path extension when the mime type is missing or generic.
func detectFormat(mimeType, path string) format {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])) {
	case "application/pdf":
		return formatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return formatDOCX
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return formatXLSX
	case "text/plain", "text/markdown":
		return formatPlain
	case "image/png", "image/jpeg", "image/tiff":
		return formatImage
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	case ".xlsx":
		return formatXLSX
	case ".txt", ".md", ".markdown":
		return formatPlain
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return formatImage
	}
	return formatUnknown
}

func singlePage(text string) []core.PageInfo {
	return []core.PageInfo{{Number: 1, Chars: len(text)}}
}

func pathOf(doc *core.SourceDocument) string {
	if doc == nil {
		return ""
	}
	return doc.Path
}

// normalizePlainText canonicalizes line endings and strips trailing blanks.
func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
