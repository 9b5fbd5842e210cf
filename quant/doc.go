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

// Package quant compresses embedding vectors to one byte per dimension
// with a per-vector affine mapping, and guards the compression with a
// quality floor.
//
// Each vector is encoded as code = round((value - offset) / scale) where
// offset is the vector's minimum component and scale spans its range over
// 255 levels. Compression quality is measured as the average cosine
// similarity between original and reconstructed vectors across a batch;
// when it falls below the configured floor the batch is kept uncompressed
// rather than silently degrading recall.
package quant
