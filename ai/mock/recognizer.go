package mock

import (
	"context"
	"sync"

	"github.com/normindex/normindex/ai"
)

// MockRecognizer is a test double for ai.Recognizer.
type MockRecognizer struct {
	// RecognizeFunc is called by Recognize if set.
	// If nil, returns Pages verbatim.
	RecognizeFunc func(ctx context.Context, req ai.RecognitionRequest) (*ai.RecognitionResult, error)

	// Pages is the canned result returned when RecognizeFunc is nil.
	Pages []ai.PageText

	mu        sync.Mutex
	callCount int
}

var _ ai.Recognizer = (*MockRecognizer)(nil)

// NewMockRecognizer creates a mock recognizer returning the given pages.
func NewMockRecognizer(pages ...ai.PageText) *MockRecognizer {
	return &MockRecognizer{Pages: pages}
}

// Recognize returns the canned pages or delegates to RecognizeFunc.
func (m *MockRecognizer) Recognize(ctx context.Context, req ai.RecognitionRequest) (*ai.RecognitionResult, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, req)
	}
	return &ai.RecognitionResult{Pages: m.Pages}, nil
}

// CallCount returns the number of Recognize calls.
func (m *MockRecognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
