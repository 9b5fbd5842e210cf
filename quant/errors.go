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

package quant

import "errors"

var (
	// ErrQualityDegraded indicates compression quality fell below the
	// configured floor and the batch was kept uncompressed.
	ErrQualityDegraded = errors.New("compression quality below floor")

	// ErrEmptyBatch indicates there are no vectors to compress.
	ErrEmptyBatch = errors.New("empty vector batch")

	// ErrNotQuantized indicates a dequantize call on a full-precision vector.
	ErrNotQuantized = errors.New("vector is not quantized")

	// ErrInvalidFloor indicates a quality floor outside (0, 1].
	ErrInvalidFloor = errors.New("quality floor must be in (0, 1]")
)
