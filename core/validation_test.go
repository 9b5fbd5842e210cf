package core

import (
	"errors"
	"testing"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				Id:            1,
				DocumentId:    2,
				Ordinal:       0,
				Text:          "5.2 Требования к материалам",
				HierarchyPath: []string{"doc", "5", "5.2"},
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty text",
			chunk:   &Chunk{Id: 1, Ordinal: 0, Text: ""},
			wantErr: ErrEmptyText,
		},
		{
			name:    "negative ordinal",
			chunk:   &Chunk{Id: 1, Ordinal: -1, Text: "x"},
			wantErr: ErrInvalidOrdinal,
		},
		{
			name: "empty hierarchy level",
			chunk: &Chunk{
				Id:            1,
				Ordinal:       0,
				Text:          "x",
				HierarchyPath: []string{"doc", ""},
			},
			wantErr: ErrInvalidHierarchy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name    string
		vector  *Vector
		wantErr error
	}{
		{
			name:    "valid full vector",
			vector:  &Vector{ChunkId: 1, Dim: 3, Kind: VectorFull, Values: []float32{1, 2, 3}},
			wantErr: nil,
		},
		{
			name:    "valid quantized vector",
			vector:  &Vector{ChunkId: 1, Dim: 3, Kind: VectorQuantized, Packed: []byte{0, 128, 255}, Scale: 0.1},
			wantErr: nil,
		},
		{
			name:    "nil vector",
			vector:  nil,
			wantErr: ErrInvalidVector,
		},
		{
			name:    "full vector dimension mismatch",
			vector:  &Vector{ChunkId: 1, Dim: 4, Kind: VectorFull, Values: []float32{1, 2, 3}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "quantized vector dimension mismatch",
			vector:  &Vector{ChunkId: 1, Dim: 2, Kind: VectorQuantized, Packed: []byte{1}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "unknown kind",
			vector:  &Vector{ChunkId: 1, Dim: 0, Kind: VectorKind(9)},
			wantErr: ErrInvalidVectorKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVector(tt.vector)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateVector() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateVector() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEntry(t *testing.T) {
	valid := IndexEntry{
		ChunkId: 7,
		Vector:  Vector{ChunkId: 7, Dim: 2, Kind: VectorFull, Values: []float32{0.1, 0.2}},
		Payload: Payload{DocumentId: 1, Text: "some clause text"},
	}

	if err := ValidateEntry(&valid); err != nil {
		t.Fatalf("ValidateEntry() unexpected error: %v", err)
	}

	zeroID := valid
	zeroID.ChunkId = 0
	if err := ValidateEntry(&zeroID); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("ValidateEntry() error = %v, want %v", err, ErrInvalidEntry)
	}

	noText := valid
	noText.Payload.Text = ""
	if err := ValidateEntry(&noText); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("ValidateEntry() error = %v, want %v", err, ErrEmptyText)
	}

	if err := ValidateEntry(nil); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("ValidateEntry(nil) error = %v, want %v", err, ErrInvalidEntry)
	}
}
