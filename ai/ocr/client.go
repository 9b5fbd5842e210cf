package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/normindex/normindex/ai"
)

// Recognizer implements ai.Recognizer against a tesseract-style HTTP
// sidecar. The sidecar renders document pages at the requested DPI and
// returns recognized text per page.
type Recognizer struct {
	host     string
	language string
	client   *http.Client
	logger   *slog.Logger
}

var _ ai.Recognizer = (*Recognizer)(nil)

// NewRecognizer creates a recognition client from the shared AI config.
func NewRecognizer(config *ai.Config) *Recognizer {
	config.Normalize()
	return &Recognizer{
		host:     config.RecognizerHost,
		language: config.RecognizerLanguage,
		client:   &http.Client{Timeout: config.RequestTimeout},
		logger:   slog.Default().With("component", "ocr-recognizer"),
	}
}

type recognizeRequest struct {
	Data     string `json:"data"` // base64-encoded document bytes
	MimeType string `json:"mime_type"`
	DPI      int    `json:"dpi,omitempty"`
	Language string `json:"language,omitempty"`
}

type recognizeResponse struct {
	Pages []struct {
		Number int    `json:"number"`
		Text   string `json:"text"`
	} `json:"pages"`
}

// Recognize sends the document to the sidecar and collects per-page text.
func (r *Recognizer) Recognize(ctx context.Context, req ai.RecognitionRequest) (*ai.RecognitionResult, error) {
	if len(req.Data) == 0 {
		return nil, ai.ErrEmptyInput
	}

	language := req.Language
	if language == "" {
		language = r.language
	}

	body, err := json.Marshal(recognizeRequest{
		Data:     base64.StdEncoding.EncodeToString(req.Data),
		MimeType: req.MimeType,
		DPI:      req.DPI,
		Language: language,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	r.logger.Debug("sending document for recognition", "bytes", len(req.Data), "dpi", req.DPI, "language", language)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrRecognitionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: recognize returned %s", ai.ErrRecognitionUnavailable, resp.Status)
	}

	var decoded recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}

	result := &ai.RecognitionResult{Pages: make([]ai.PageText, len(decoded.Pages))}
	for i, page := range decoded.Pages {
		result.Pages[i] = ai.PageText{Number: page.Number, Text: page.Text}
	}
	return result, nil
}
