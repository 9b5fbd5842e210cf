package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/normindex/normindex/core"
)

func TestEntryRoundTrip(t *testing.T) {
	entry := &core.IndexEntry{
		ChunkId: 101,
		Vector: core.Vector{
			ChunkId: 101,
			Dim:     4,
			Kind:    core.VectorQuantized,
			Packed:  []byte{0x7f, 0x00, 0x81, 0x40},
			Scale:   0.0039,
			Offset:  -0.5,
		},
		Payload: core.Payload{
			DocumentId:    42,
			Ordinal:       3,
			Text:          "5.2 Защитный слой бетона должен быть не менее 20 мм",
			HierarchyPath: []string{"СП 63.13330.2018", "5", "5.2"},
			Entities:      []string{"ГОСТ 27751"},
			Method:        core.ExtractionNative,
		},
	}

	decoded, err := UnmarshalEntry(MarshalEntry(entry))
	if err != nil {
		t.Fatalf("UnmarshalEntry() error: %v", err)
	}
	if !reflect.DeepEqual(entry, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, entry)
	}
}

func TestIDRoundTrip(t *testing.T) {
	for _, id := range []core.ID{0, 1, 42, 1<<63 - 1} {
		decoded, err := UnmarshalID(MarshalID(id))
		if err != nil {
			t.Fatalf("UnmarshalID(%d) error: %v", id, err)
		}
		if decoded != id {
			t.Errorf("round trip = %d, want %d", decoded, id)
		}
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalEntry([]byte{0xff}); !errors.Is(err, ErrSerializationFailed) {
		t.Errorf("UnmarshalEntry() error = %v, want ErrSerializationFailed", err)
	}
	if _, err := UnmarshalID(nil); !errors.Is(err, ErrSerializationFailed) {
		t.Errorf("UnmarshalID() error = %v, want ErrSerializationFailed", err)
	}
}
