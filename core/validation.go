// Copyright 2026 Normindex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Ordinal must not be negative
//   - HierarchyPath elements must not be empty strings
//
// NOT validated (populated later in the pipeline):
//   - InsertedAt (set by the store on commit)
//   - ParentId (0 is valid for top-level chunks)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.Ordinal < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidOrdinal)
	}

	for _, level := range chunk.HierarchyPath {
		if level == "" {
			return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidHierarchy)
		}
	}

	return nil
}

// ValidateVector validates a Vector according to domain rules.
//
// Validation rules:
//   - Kind must be VectorFull or VectorQuantized
//   - the populated representation must match the declared dimension
func ValidateVector(vector *Vector) error {
	if vector == nil {
		return fmt.Errorf("%w: vector is nil", ErrInvalidVector)
	}

	switch vector.Kind {
	case VectorFull:
		if len(vector.Values) != vector.Dim {
			return fmt.Errorf("%w: %w: declared %d, got %d values",
				ErrInvalidVector, ErrDimensionMismatch, vector.Dim, len(vector.Values))
		}
	case VectorQuantized:
		if len(vector.Packed) != vector.Dim {
			return fmt.Errorf("%w: %w: declared %d, got %d codes",
				ErrInvalidVector, ErrDimensionMismatch, vector.Dim, len(vector.Packed))
		}
	default:
		return fmt.Errorf("%w: %w: value %d", ErrInvalidVector, ErrInvalidVectorKind, vector.Kind)
	}

	return nil
}

// ValidateEntry validates an IndexEntry before it is written to the store.
func ValidateEntry(entry *IndexEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.ChunkId == 0 {
		return fmt.Errorf("%w: chunk id is zero", ErrInvalidEntry)
	}

	if err := ValidateVector(&entry.Vector); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	if entry.Payload.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyText)
	}

	return nil
}
