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

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/normindex/normindex/core"
)

// DefaultQualityFloor is the minimum acceptable average cosine similarity
// between original and reconstructed vectors.
const DefaultQualityFloor = 0.85

// Report describes the outcome of compressing one batch.
type Report struct {
	Vectors    int
	AvgCosine  float64
	Compressed bool
}

// Quantizer compresses full-precision vectors to one byte per dimension.
type Quantizer struct {
	floor  float64
	strict bool
	logger *slog.Logger
}

// Option configures a Quantizer.
type Option func(*Quantizer) error

// WithQualityFloor sets the minimum average cosine similarity a compressed
// batch must retain. Must be in (0, 1].
func WithQualityFloor(floor float64) Option {
	return func(q *Quantizer) error {
		if floor <= 0 || floor > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidFloor, floor)
		}
		q.floor = floor
		return nil
	}
}

// WithStrict makes Compress return ErrQualityDegraded when the floor is
// not met, instead of only reporting the fallback.
func WithStrict() Option {
	return func(q *Quantizer) error {
		q.strict = true
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Quantizer) error {
		if logger != nil {
			q.logger = logger
		}
		return nil
	}
}

// New creates a Quantizer with the default quality floor.
func New(opts ...Option) (*Quantizer, error) {
	q := &Quantizer{
		floor:  DefaultQualityFloor,
		logger: slog.Default().With("component", "quantizer"),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Compress quantizes a batch of full-precision vectors.
//
// When the batch's average reconstruction cosine stays at or above the
// quality floor, the returned vectors are quantized. Otherwise the batch
// falls back to the original full-precision vectors; the report records
// the measured quality either way. In strict mode the fallback also
// returns ErrQualityDegraded.
func (q *Quantizer) Compress(vectors []*core.Vector) ([]*core.Vector, *Report, error) {
	if len(vectors) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	quantized := make([]*core.Vector, len(vectors))
	var cosineSum float64

	for i, vector := range vectors {
		if err := core.ValidateVector(vector); err != nil {
			return nil, nil, err
		}
		if vector.Kind != core.VectorFull {
			return nil, nil, fmt.Errorf("%w: vector %d already quantized", core.ErrInvalidVectorKind, vector.ChunkId)
		}

		codes, scale, offset := quantizeOne(vector.Values)
		quantized[i] = &core.Vector{
			ChunkId: vector.ChunkId,
			Dim:     vector.Dim,
			Kind:    core.VectorQuantized,
			Packed:  codes,
			Scale:   scale,
			Offset:  offset,
		}

		reconstructed := dequantizeOne(codes, scale, offset)
		cosineSum += Cosine(vector.Values, reconstructed)
	}

	report := &Report{
		Vectors:   len(vectors),
		AvgCosine: cosineSum / float64(len(vectors)),
	}

	if report.AvgCosine < q.floor {
		q.logger.Warn("compression quality below floor, storing uncompressed",
			"avgCosine", report.AvgCosine, "floor", q.floor, "vectors", report.Vectors)
		if q.strict {
			return vectors, report, fmt.Errorf("%w: avg cosine %.4f < %.4f",
				ErrQualityDegraded, report.AvgCosine, q.floor)
		}
		return vectors, report, nil
	}

	report.Compressed = true
	return quantized, report, nil
}

// Dequantize reconstructs the approximate full-precision values of a
// quantized vector.
func (q *Quantizer) Dequantize(vector *core.Vector) ([]float32, error) {
	if err := core.ValidateVector(vector); err != nil {
		return nil, err
	}
	if vector.Kind != core.VectorQuantized {
		return nil, fmt.Errorf("%w: chunk %d", ErrNotQuantized, vector.ChunkId)
	}
	return dequantizeOne(vector.Packed, vector.Scale, vector.Offset), nil
}

// quantizeOne maps values onto 256 affine levels spanning their range.
// A constant vector gets scale 0 and reconstructs exactly.
func quantizeOne(values []float32) (codes []byte, scale, offset float32) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	offset = min
	scale = (max - min) / 255

	codes = make([]byte, len(values))
	if scale == 0 {
		return codes, scale, offset
	}

	for i, v := range values {
		code := math.Round(float64((v - offset) / scale))
		if code < 0 {
			code = 0
		} else if code > 255 {
			code = 255
		}
		codes[i] = byte(code)
	}
	return codes, scale, offset
}

func dequantizeOne(codes []byte, scale, offset float32) []float32 {
	values := make([]float32, len(codes))
	for i, code := range codes {
		values[i] = offset + scale*float32(code)
	}
	return values
}

// Cosine computes the cosine similarity of two equal-length vectors.
// Returns 0 when either vector has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales a vector to unit length.
// Returns a new slice; a zero vector stays zero.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
