package mock

import (
	"context"
	"testing"

	"github.com/specvital/worker/internal/domain/extraction"
)

func TestProvider_GenerateAlwaysReturnsEmptyObject(t *testing.T) {
	provider := NewProvider()

	reply, err := provider.Generate(context.Background(), "extract patient name", extraction.CompletionOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "{}" {
		t.Errorf("expected empty JSON object, got %q", reply)
	}
}

func TestProvider_EmbedIsDeterministic(t *testing.T) {
	provider := NewProvider()

	texts := []string{"John Doe", "Jane Smith"}
	first, err := provider.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(texts) || len(second) != len(texts) {
		t.Fatalf("expected %d vectors, got %d and %d", len(texts), len(first), len(second))
	}
	for i := range texts {
		if len(first[i]) != vectorDim {
			t.Fatalf("expected vector dimension %d, got %d", vectorDim, len(first[i]))
		}
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Errorf("expected deterministic vectors, index %d/%d differed: %v vs %v", i, j, first[i][j], second[i][j])
			}
		}
	}

	if equalVectors(first[0], first[1]) {
		t.Error("expected distinct texts to produce distinct vectors")
	}
}

func TestProvider_EmbedEmptyInput(t *testing.T) {
	provider := NewProvider()

	vectors, err := provider.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected 0 vectors, got %d", len(vectors))
	}
}

func TestProvider_Close(t *testing.T) {
	provider := NewProvider()
	if err := provider.Close(); err != nil {
		t.Errorf("Close should return nil, got %v", err)
	}
}

func equalVectors(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
