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


package ai

import "errors"

var (
	// ErrEmbeddingUnavailable is returned when the embedding backend
	// cannot be reached. Ingestion halts for the current batch; prior
	// sub-batches stay committed.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrRecognitionUnavailable is returned when the optical recognition
	// backend cannot be reached.
	ErrRecognitionUnavailable = errors.New("recognition backend unavailable")

	// ErrEmptyInput is returned when an empty text or document is submitted.
	ErrEmptyInput = errors.New("empty input")
)
