package mock

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/specvital/worker/internal/domain/extraction"
)

const vectorDim = 16

// Provider implements extraction.Completion and extraction.Embedder with
// deterministic, non-AI responses. Intended for local development and
// integration tests that exercise the Pipeline Orchestrator without
// network access or API credentials.
type Provider struct{}

// NewProvider creates a new mock AI provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Close releases resources (no-op for mock).
func (p *Provider) Close() error {
	return nil
}

// Generate always returns an empty JSON object, representing "no fields
// found" for every job. Downstream null-filtering and merging treat this
// the same as a field-less provider reply, so a pipeline run against the
// mock provider exercises every stage without ever producing a false
// positive.
func (p *Provider) Generate(ctx context.Context, prompt string, opts extraction.CompletionOptions) (string, error) {
	return "{}", nil
}

// Embed returns a deterministic vector per text, derived from an FNV
// hash of its content. Two calls with the same text always produce the
// same vector, and distinct texts produce distinct vectors, which is all
// the dedup similarity index needs from a stand-in embedder.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text)
	}
	return vectors, nil
}

func deterministicVector(text string) []float64 {
	vec := make([]float64, vectorDim)
	for i := 0; i < vectorDim; i++ {
		h := fnv.New64a()
		h.Write([]byte(fmt.Sprintf("%s:%d", text, i)))
		vec[i] = float64(h.Sum64()%1000) / 1000.0
	}
	return vec
}
