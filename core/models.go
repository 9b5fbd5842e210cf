package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Chunk and document IDs are content hashes, so identical bytes always
// map to the same ID and re-ingestion deduplicates naturally.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	return IDFromBytes([]byte(text))
}

// IDFromBytes generates a deterministic ID from raw bytes using BLAKE2b hashing.
func IDFromBytes(data []byte) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ExtractionMethod identifies how text was obtained from a source document.
// Callers can inspect it to tell which strategy produced the content.
type ExtractionMethod int

const (
	// ExtractionNative means the text layer was read directly from the file.
	ExtractionNative ExtractionMethod = iota + 1
	// ExtractionOCRFallback means pages were rendered and recognized optically.
	ExtractionOCRFallback
)

// String returns the method tag used in payloads and logs.
func (m ExtractionMethod) String() string {
	switch m {
	case ExtractionNative:
		return "native"
	case ExtractionOCRFallback:
		return "ocr-fallback"
	default:
		return "unknown"
	}
}

// SourceDocument is an immutable ingestion input.
// It is created when an ingestion request arrives and discarded once the
// derived chunks are committed; only Id (the content hash) outlives it.
type SourceDocument struct {
	Id       ID
	Path     string
	MimeType string
	Data     []byte
	Metadata map[string]string
}

// NewSourceDocument builds a SourceDocument with a content-hash ID.
func NewSourceDocument(path, mimeType string, data []byte, metadata map[string]string) *SourceDocument {
	return &SourceDocument{
		Id:       IDFromBytes(data),
		Path:     path,
		MimeType: mimeType,
		Data:     data,
		Metadata: metadata,
	}
}

// PageInfo describes one page of extracted content.
type PageInfo struct {
	Number int // 1-based page number
	Chars  int // characters of text recovered from the page
}

// ExtractedContent is the output of extraction for a single document.
// It exists only for the duration of an ingestion run; chunks derived from
// it are the persistent artifacts.
type ExtractedContent struct {
	DocumentId ID
	Text       string
	Pages      []PageInfo
	Method     ExtractionMethod
}

// CharRange locates a chunk inside the extracted document text.
type CharRange struct {
	Start int
	End   int
}

// Chunk is a bounded span of document text prepared for embedding.
// Ordinals are assigned before embedding runs, strictly increasing within
// a document, so concurrent processing cannot reorder hierarchy metadata.
type Chunk struct {
	Id            ID // content hash of Text
	DocumentId    ID
	Ordinal       int
	Text          string
	HierarchyPath []string // document > section > clause ancestry
	ParentId      ID       // 0 for top-level chunks
	Range         CharRange
	Entities      []string // normative references detected in the text
	InsertedAt    time.Time
}

// VectorKind tags how a vector is stored.
type VectorKind int

const (
	// VectorFull stores full float32 precision.
	VectorFull VectorKind = iota + 1
	// VectorQuantized stores affine 8-bit codes with scale and offset.
	VectorQuantized
)

// Vector is the embedding derived from exactly one chunk.
// Exactly one representation is populated according to Kind: Values for
// full precision, Packed+Scale+Offset for quantized storage.
type Vector struct {
	ChunkId ID
	Dim     int
	Kind    VectorKind
	Values  []float32
	Packed  []byte // 8-bit quantization codes
	Scale   float32
	Offset  float32
}

// Payload mirrors chunk metadata into the index so search filters can be
// applied without a second lookup.
type Payload struct {
	DocumentId    ID
	Ordinal       int
	Text          string
	HierarchyPath []string
	Entities      []string
	Method        ExtractionMethod
}

// IndexEntry pairs a vector with its chunk payload for storage.
// Its lifecycle is tied 1:1 to the vector; deleting or re-ingesting the
// owning document removes it.
type IndexEntry struct {
	ChunkId ID
	Vector  Vector
	Payload Payload
}

// EntryFromChunk builds an index entry from a chunk and its vector.
func EntryFromChunk(chunk *Chunk, vector Vector) IndexEntry {
	return IndexEntry{
		ChunkId: chunk.Id,
		Vector:  vector,
		Payload: Payload{
			DocumentId:    chunk.DocumentId,
			Ordinal:       chunk.Ordinal,
			Text:          chunk.Text,
			HierarchyPath: chunk.HierarchyPath,
			Entities:      chunk.Entities,
		},
	}
}

// SearchResult is a ranked hit from similarity search.
type SearchResult struct {
	ChunkId ID
	Score   float32
	Payload Payload
}

// IndexStats reports aggregate index contents.
type IndexStats struct {
	TotalChunks    int
	TotalDocuments int
}
