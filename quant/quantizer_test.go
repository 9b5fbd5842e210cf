package quant

import (
	"errors"
	"math"
	"testing"

	"github.com/normindex/normindex/core"
)

// pseudoVector generates a deterministic unit vector from a seed.
func pseudoVector(seed uint64, dim int) []float32 {
	state := seed
	values := make([]float32, dim)
	for i := range values {
		state = state*6364136223846793005 + 1442695040888963407
		values[i] = float32(int64(state>>33))/float32(1<<30) - 1
	}
	return Normalize(values)
}

func fullVector(chunkID core.ID, seed uint64, dim int) *core.Vector {
	return &core.Vector{
		ChunkId: chunkID,
		Dim:     dim,
		Kind:    core.VectorFull,
		Values:  pseudoVector(seed, dim),
	}
}

func TestCompressBatch(t *testing.T) {
	q, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	vectors := make([]*core.Vector, 8)
	for i := range vectors {
		vectors[i] = fullVector(core.ID(i+1), uint64(i+1), 384)
	}

	compressed, report, err := q.Compress(vectors)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}

	if !report.Compressed {
		t.Fatalf("batch not compressed, avg cosine %.4f", report.AvgCosine)
	}
	if report.Vectors != len(vectors) {
		t.Errorf("report.Vectors = %d, want %d", report.Vectors, len(vectors))
	}
	if report.AvgCosine < DefaultQualityFloor {
		t.Errorf("avg cosine %.4f below floor %.2f", report.AvgCosine, DefaultQualityFloor)
	}

	for i, vector := range compressed {
		if vector.Kind != core.VectorQuantized {
			t.Fatalf("vector %d kind = %v", i, vector.Kind)
		}
		if vector.ChunkId != vectors[i].ChunkId {
			t.Errorf("vector %d chunk id changed", i)
		}
		if len(vector.Packed) != vector.Dim || vector.Dim != 384 {
			t.Errorf("vector %d has %d codes for dim %d", i, len(vector.Packed), vector.Dim)
		}
	}
}

func TestCompressReconstructionQuality(t *testing.T) {
	q, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	original := fullVector(1, 42, 768)
	compressed, _, err := q.Compress([]*core.Vector{original})
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}

	reconstructed, err := q.Dequantize(compressed[0])
	if err != nil {
		t.Fatalf("Dequantize() error: %v", err)
	}
	if got := Cosine(original.Values, reconstructed); got < 0.99 {
		t.Errorf("reconstruction cosine %.4f, want >= 0.99", got)
	}
}

func TestCompressConstantVectorExact(t *testing.T) {
	q, _ := New()

	values := []float32{0.5, 0.5, 0.5, 0.5}
	vector := &core.Vector{ChunkId: 1, Dim: 4, Kind: core.VectorFull, Values: values}

	compressed, _, err := q.Compress([]*core.Vector{vector})
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}

	reconstructed, err := q.Dequantize(compressed[0])
	if err != nil {
		t.Fatalf("Dequantize() error: %v", err)
	}
	for i, v := range reconstructed {
		if v != values[i] {
			t.Errorf("component %d = %v, want %v", i, v, values[i])
		}
	}
}

func TestCompressQualityFloorFallback(t *testing.T) {
	// A floor of 1.0 is unreachable for any vector with rounding error.
	q, err := New(WithQualityFloor(1.0))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	vector := &core.Vector{
		ChunkId: 1,
		Dim:     3,
		Kind:    core.VectorFull,
		Values:  []float32{0, 0.3, 1},
	}

	out, report, err := q.Compress([]*core.Vector{vector})
	if err != nil {
		t.Fatalf("fallback must not error outside strict mode: %v", err)
	}
	if report.Compressed {
		t.Fatal("report claims compression despite floor fallback")
	}
	if out[0].Kind != core.VectorFull {
		t.Errorf("fallback vector kind = %v, want full precision", out[0].Kind)
	}
}

func TestCompressStrictMode(t *testing.T) {
	q, err := New(WithQualityFloor(1.0), WithStrict())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	vector := &core.Vector{ChunkId: 1, Dim: 3, Kind: core.VectorFull, Values: []float32{0, 0.3, 1}}

	out, report, err := q.Compress([]*core.Vector{vector})
	if !errors.Is(err, ErrQualityDegraded) {
		t.Fatalf("err = %v, want ErrQualityDegraded", err)
	}
	if report == nil || report.Compressed {
		t.Error("strict fallback must still report measured quality")
	}
	if out[0].Kind != core.VectorFull {
		t.Error("strict fallback must return full-precision vectors")
	}
}

func TestCompressRejectsBadInput(t *testing.T) {
	q, _ := New()

	if _, _, err := q.Compress(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch: err = %v", err)
	}

	quantized := &core.Vector{ChunkId: 1, Dim: 2, Kind: core.VectorQuantized, Packed: []byte{1, 2}}
	if _, _, err := q.Compress([]*core.Vector{quantized}); err == nil {
		t.Error("already-quantized vector accepted")
	}
}

func TestDequantizeRejectsFullVector(t *testing.T) {
	q, _ := New()

	full := fullVector(1, 7, 16)
	if _, err := q.Dequantize(full); !errors.Is(err, ErrNotQuantized) {
		t.Errorf("err = %v, want ErrNotQuantized", err)
	}
}

func TestNewRejectsInvalidFloor(t *testing.T) {
	for _, floor := range []float64{0, -0.1, 1.5} {
		if _, err := New(WithQualityFloor(floor)); !errors.Is(err, ErrInvalidFloor) {
			t.Errorf("floor %v: err = %v, want ErrInvalidFloor", floor, err)
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	normalized := Normalize([]float32{3, 4})
	if math.Abs(float64(normalized[0])-0.6) > 1e-6 || math.Abs(float64(normalized[1])-0.8) > 1e-6 {
		t.Errorf("Normalize(3,4) = %v", normalized)
	}

	zero := Normalize([]float32{0, 0, 0})
	for _, v := range zero {
		if v != 0 {
			t.Errorf("zero vector changed: %v", zero)
		}
	}

	if out := Normalize(nil); len(out) != 0 {
		t.Errorf("nil input produced %v", out)
	}
}
