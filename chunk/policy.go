package chunk

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultMaxTokens is the token budget per chunk, sized for common
	// embedding models with headroom.
	DefaultMaxTokens = 400

	// DefaultOverlap is the number of tokens adjacent windowed chunks
	// may share at their boundary.
	DefaultOverlap = 50

	// DefaultMarkerTolerance is the token distance within which a
	// structural marker wins over the raw budget boundary.
	DefaultMarkerTolerance = 40
)

// TokenCounter estimates the token cost of a text for the embedding model.
type TokenCounter interface {
	Count(text string) int
}

// Policy controls how extracted text is split into chunks.
// The constants are heuristics tuned for Russian construction and
// regulatory texts; treat them as configuration when retargeting.
type Policy struct {
	MaxTokens       int
	Overlap         int
	MarkerTolerance int
	Counter         TokenCounter
}

// DefaultPolicy returns the policy used when callers pass a zero Policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxTokens:       DefaultMaxTokens,
		Overlap:         DefaultOverlap,
		MarkerTolerance: DefaultMarkerTolerance,
		Counter:         HeuristicCounter{},
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.Overlap >= p.MaxTokens {
		p.Overlap = p.MaxTokens / 4
	}
	if p.MarkerTolerance < 0 {
		p.MarkerTolerance = 0
	}
	if p.Counter == nil {
		p.Counter = HeuristicCounter{}
	}
	return p
}

// HeuristicCounter approximates tokens as one per four runes.
// Deterministic and dependency-free; good enough for budget enforcement.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}

// TiktokenCounter counts tokens with a real BPE vocabulary.
// Loading an encoding may fetch vocabulary files on first use, so this
// counter is opt-in; the heuristic stays the default.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
