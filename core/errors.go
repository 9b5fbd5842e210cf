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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidVector indicates a Vector failed validation.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrInvalidEntry indicates an IndexEntry failed validation.
	ErrInvalidEntry = errors.New("invalid index entry")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidOrdinal indicates a negative chunk ordinal.
	ErrInvalidOrdinal = errors.New("ordinal cannot be negative")

	// ErrInvalidHierarchy indicates a malformed hierarchy path.
	ErrInvalidHierarchy = errors.New("hierarchy path is malformed")

	// ErrInvalidVectorKind indicates an unrecognized VectorKind value.
	ErrInvalidVectorKind = errors.New("invalid vector kind")

	// ErrDimensionMismatch indicates vector data does not match its declared dimension.
	ErrDimensionMismatch = errors.New("vector data does not match dimension")
)
