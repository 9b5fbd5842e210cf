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

package ingest

import "errors"

var (
	// ErrExtractorRequired indicates a nil extractor was passed.
	ErrExtractorRequired = errors.New("extractor is required")

	// ErrChunkerRequired indicates a nil chunker was passed.
	ErrChunkerRequired = errors.New("chunker is required")

	// ErrEmbedderRequired indicates a nil embedder was passed.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrUpserterRequired indicates a nil upserter was passed.
	ErrUpserterRequired = errors.New("upserter is required")

	// ErrNoDocuments indicates an ingestion request without documents.
	ErrNoDocuments = errors.New("no documents to ingest")

	// ErrJobNotFound indicates an unknown job ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidMaxAttempts indicates a non-positive retry budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmbeddingMismatch indicates the embedder returned a vector
	// count different from the chunk count.
	ErrEmbeddingMismatch = errors.New("embedding count does not match chunk count")
)
