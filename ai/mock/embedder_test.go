package mock

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_BatchCompositionDoesNotPerturbVectors(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder()

	alone, err := embedder.EmbedTexts(ctx, []string{"пункт 5.2"})
	if err != nil {
		t.Fatalf("EmbedTexts() error: %v", err)
	}

	batched, err := embedder.EmbedTexts(ctx, []string{"пункт 5.2", "другой текст", "и ещё один"})
	if err != nil {
		t.Fatalf("EmbedTexts() error: %v", err)
	}

	if len(alone[0]) != len(batched[0]) {
		t.Fatalf("dimension mismatch: %d vs %d", len(alone[0]), len(batched[0]))
	}
	for i := range alone[0] {
		if alone[0][i] != batched[0][i] {
			t.Fatalf("vector component %d differs between batch sizes: %v vs %v", i, alone[0][i], batched[0][i])
		}
	}
}

func TestDeterministicVector_UnitLength(t *testing.T) {
	v := DeterministicVector("СП 20.13330.2016", 384)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-3 {
		t.Fatalf("expected unit vector, squared norm = %f", sum)
	}
}

func TestMockEmbedder_CallCount(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	_, _ = embedder.EmbedText(ctx, "a")
	_, _ = embedder.EmbedTexts(ctx, []string{"b", "c"})

	if got := embedder.CallCount(); got != 2 {
		t.Fatalf("CallCount() = %d, want 2", got)
	}

	embedder.Reset()
	if got := embedder.CallCount(); got != 0 {
		t.Fatalf("CallCount() after Reset = %d, want 0", got)
	}
}
