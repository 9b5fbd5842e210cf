package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/normindex/normindex/core"
)

// Key prefixes for different data types
const (
	entryPrefix    = "idxent"
	docIndexPrefix = "idxdoc"
)

// makeEntryKey generates a key for an index entry by chunk ID.
func makeEntryKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entryPrefix, chunkID))
}

// makeDocIndexKey generates a composite key for the document index.
// Format: prefix:documentID:chunkID
func makeDocIndexKey(documentID, chunkID core.ID) []byte {
	prefix := docIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialDocIndexKey generates a partial key for per-document scans.
// Format: prefix:documentID
func makePartialDocIndexKey(documentID core.ID) []byte {
	prefix := docIndexPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// parseDocIndexKey extracts the document and chunk IDs from a composite key.
func parseDocIndexKey(key []byte) (documentID, chunkID core.ID, ok bool) {
	prefixSize := len(docIndexPrefix) + 1
	if len(key) != prefixSize+16 {
		return 0, 0, false
	}
	documentID = core.ID(binary.BigEndian.Uint64(key[prefixSize:]))
	chunkID = core.ID(binary.BigEndian.Uint64(key[prefixSize+8:]))
	return documentID, chunkID, true
}
