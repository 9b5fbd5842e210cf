package chunk

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/normindex/normindex/core"
)

// maxDepth bounds marker recursion; clause numbering deeper than this is
// treated as unstructured text.
const maxDepth = 6

// Chunker splits extracted text into overlapping, hierarchy-aware chunks
// sized for embedding.
//
// Splitting is document-structure-recursive: top-level structural markers
// first, then numbered subclauses for any section still over the token
// budget, finally a sentence-packing sliding window with overlap for
// unstructured remainder text. Ordinals are assigned here, before any
// concurrent processing, and chunk IDs are content hashes so re-chunking
// identical content yields identical IDs.
type Chunker struct {
	policy Policy
	logger *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Chunker. A zero Policy gets defaults.
func New(policy Policy, opts ...Option) *Chunker {
	c := &Chunker{
		policy: policy.withDefaults(),
		logger: slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits extracted content according to the chunker's policy.
// Every returned chunk has non-empty text within the token budget, a
// strictly increasing ordinal, and a hierarchy path rooted at the
// document label.
func (c *Chunker) Chunk(content *core.ExtractedContent) ([]*core.Chunk, error) {
	if content == nil || strings.TrimSpace(content.Text) == "" {
		return nil, ErrEmptyContent
	}

	b := &builder{
		policy:  c.policy,
		content: content,
	}

	root := []string{documentLabel(content.Text)}
	c.split(b, segment{text: content.Text}, root, 0, 1, "")

	c.logger.Debug("chunked document",
		"document", content.DocumentId, "chunks", len(b.chunks), "method", content.Method.String())

	return b.chunks, nil
}

// segment is a piece of document text plus its byte offset in the whole.
type segment struct {
	text string
	base int
}

// builder accumulates chunks and assigns ordinals.
type builder struct {
	policy  Policy
	content *core.ExtractedContent
	ordinal int
	chunks  []*core.Chunk
}

// emit appends one chunk. Returns nil for blank text.
func (b *builder) emit(seg segment, path []string, parent core.ID) *core.Chunk {
	trimmed := strings.TrimSpace(seg.text)
	if trimmed == "" {
		return nil
	}

	start := seg.base + strings.IndexFunc(seg.text, func(r rune) bool { return !unicode.IsSpace(r) })
	hierarchy := make([]string, len(path))
	copy(hierarchy, path)

	chunk := &core.Chunk{
		Id:            chunkID(b.content.DocumentId, b.ordinal, trimmed),
		DocumentId:    b.content.DocumentId,
		Ordinal:       b.ordinal,
		Text:          trimmed,
		HierarchyPath: hierarchy,
		ParentId:      parent,
		Range:         core.CharRange{Start: start, End: start + len(trimmed)},
		Entities:      detectEntities(trimmed),
	}
	b.ordinal++
	b.chunks = append(b.chunks, chunk)
	return chunk
}

// chunkID derives a stable content hash for a chunk.
func chunkID(docID core.ID, ordinal int, text string) core.ID {
	return core.IDFromContent(fmt.Sprintf("%d:%d:%s", docID, ordinal, text))
}

// split recursively divides a segment along structural markers, falling
// back to windowing when no markers of the current depth exist.
// Returns the ID of the first chunk emitted for the segment, or 0.
func (c *Chunker) split(b *builder, seg segment, path []string, parent core.ID, depth int, parentLabel string) core.ID {
	if strings.TrimSpace(seg.text) == "" {
		return 0
	}

	if b.policy.Counter.Count(seg.text) <= b.policy.MaxTokens {
		if chunk := b.emit(seg, path, parent); chunk != nil {
			return chunk.Id
		}
		return 0
	}

	if depth > maxDepth {
		return c.window(b, seg, path, parent)
	}

	markers := findMarkers(seg.text, depth, parentLabel)
	if len(markers) == 0 {
		// An unparsable or unstructured section falls through to generic
		// windowing rather than aborting.
		return c.window(b, seg, path, parent)
	}

	var firstID core.ID

	// Preamble before the first marker keeps the caller's hierarchy level.
	if markers[0].offset > 0 {
		firstID = c.window(b, segment{text: seg.text[:markers[0].offset], base: seg.base}, path, parent)
	}

	sectionParent := firstID
	if sectionParent == 0 {
		sectionParent = parent
	}

	for i, m := range markers {
		end := len(seg.text)
		if i+1 < len(markers) {
			end = markers[i+1].offset
		}

		childLabel := ""
		if isNumericLabel(m.label) {
			childLabel = m.label
		}

		childPath := append(append(make([]string, 0, len(path)+1), path...), m.label)

		child := c.split(b,
			segment{text: seg.text[m.offset:end], base: seg.base + m.offset},
			childPath,
			sectionParent,
			depth+1,
			childLabel,
		)
		if firstID == 0 {
			firstID = child
		}
	}

	return firstID
}

// window packs sentences greedily up to the token budget with overlap.
// When the budget boundary lands within MarkerTolerance tokens after a
// clause marker, the cut moves back to the marker so the semantic unit
// stays whole.
func (c *Chunker) window(b *builder, seg segment, path []string, parent core.ID) core.ID {
	sentences := sentenceRe.FindAllStringIndex(seg.text, -1)
	if len(sentences) == 0 {
		if chunk := b.emit(seg, path, parent); chunk != nil {
			return chunk.Id
		}
		return 0
	}

	policy := b.policy
	var firstID core.ID
	i := 0

	for i < len(sentences) {
		winStart := i
		tokens := 0

		for i < len(sentences) {
			s := seg.text[sentences[i][0]:sentences[i][1]]
			cost := policy.Counter.Count(s)

			if cost > policy.MaxTokens && i == winStart {
				// A single oversized sentence is hard-cut by runes.
				id := c.hardCut(b, segment{text: s, base: seg.base + sentences[i][0]}, path, parent)
				if firstID == 0 {
					firstID = id
				}
				i++
				winStart = i
				continue
			}

			if tokens+cost > policy.MaxTokens {
				break
			}
			tokens += cost
			i++
		}

		if i == winStart {
			continue
		}

		// Tie-break: prefer a structural marker near the budget boundary.
		cut := i
		if cut < len(sentences) {
			tail := 0
			for j := cut - 1; j > winStart; j-- {
				s := seg.text[sentences[j][0]:sentences[j][1]]
				tail += policy.Counter.Count(s)
				if tail > policy.MarkerTolerance {
					break
				}
				if isClauseStart(strings.TrimSpace(s)) {
					cut = j
					break
				}
			}
		}

		text := seg.text[sentences[winStart][0]:sentences[cut-1][1]]
		if chunk := b.emit(segment{text: text, base: seg.base + sentences[winStart][0]}, path, parent); chunk != nil {
			if firstID == 0 {
				firstID = chunk.Id
			}
		}

		if cut >= len(sentences) {
			break
		}

		// Next window re-reads up to Overlap tokens of trailing context.
		next := cut
		overlap := 0
		for next > winStart+1 {
			s := seg.text[sentences[next-1][0]:sentences[next-1][1]]
			cost := policy.Counter.Count(s)
			if overlap+cost > policy.Overlap {
				break
			}
			overlap += cost
			next--
		}
		i = next
		if i <= winStart {
			i = cut
		}
	}

	return firstID
}

// hardCut splits one oversized sentence into budget-size rune slices.
func (c *Chunker) hardCut(b *builder, seg segment, path []string, parent core.ID) core.ID {
	runes := []rune(seg.text)
	// HeuristicCounter maps four runes to a token; other counters get the
	// same conservative rune budget.
	step := b.policy.MaxTokens * 4
	if step <= 0 {
		step = len(runes)
	}

	var firstID core.ID
	base := seg.base
	for start := 0; start < len(runes); start += step {
		end := start + step
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if chunk := b.emit(segment{text: piece, base: base}, path, parent); chunk != nil {
			if firstID == 0 {
				firstID = chunk.Id
			}
		}
		base += len(piece)
	}
	return firstID
}

// documentLabel derives the hierarchy root from the first non-empty line.
func documentLabel(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if runes := []rune(trimmed); len(runes) > 80 {
				trimmed = string(runes[:80])
			}
			return trimmed
		}
	}
	return "document"
}

func isNumericLabel(label string) bool {
	for _, r := range label {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return label != ""
}
