package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Implementations must also be deterministic with respect to batch
// composition: the vector produced for a text must not depend on which
// other texts happen to share the request.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Used at query time.
	// Returns ErrEmbeddingUnavailable (possibly wrapped) if the backend
	// cannot be reached.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The returned slice contains embeddings in the same order as the
	// input texts. Inputs may be split into sub-batches internally;
	// batch size is a throughput tunable, never a correctness parameter.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Recognizer extracts text from document images via optical recognition.
// It backs the extraction fallback path for scanned documents.
// Implementations must be thread-safe for concurrent use.
type Recognizer interface {
	// Recognize renders the document at the requested DPI and runs
	// optical recognition over each page.
	// Returns ErrRecognitionUnavailable (possibly wrapped) if the
	// recognition backend cannot be reached.
	Recognize(ctx context.Context, req RecognitionRequest) (*RecognitionResult, error)
}

// RecognitionRequest carries a document to the recognition backend.
type RecognitionRequest struct {
	// Data is the raw document bytes (typically an image-only PDF or a
	// scanned image).
	Data []byte

	// MimeType tells the backend how to interpret Data.
	MimeType string

	// DPI is the page rendering resolution. Zero means backend default.
	DPI int

	// Language is the recognition language hint, e.g. "rus", "rus+eng".
	Language string
}

// PageText is recognized text for a single page.
type PageText struct {
	Number int
	Text   string
}

// RecognitionResult is the per-page output of optical recognition.
type RecognitionResult struct {
	Pages []PageText
}

// Text concatenates all recognized pages in order.
func (r *RecognitionResult) Text() string {
	var out string
	for i, page := range r.Pages {
		if i > 0 {
			out += "\n"
		}
		out += page.Text
	}
	return out
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// Recognizer instances, ensuring they share configuration.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Recognizer returns the optical recognition service.
	// The returned Recognizer is safe for concurrent use.
	Recognizer() Recognizer

	// Close releases resources held by the provider and its services.
	Close() error
}
