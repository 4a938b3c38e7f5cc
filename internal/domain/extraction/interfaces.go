package extraction

import "context"

// CompletionOptions controls a single LLM completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completion is the capability interface for an LLM text-generation
// provider. Implementations must be safe to call concurrently from many
// extraction workers. Transport, retries at the network layer, and
// credential handling are the implementation's concern, not the core's.
type Completion interface {
	Generate(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// Embedder is the capability interface for an embedding provider. Vector
// dimension is provider-defined; the similarity index is constructed to
// match whatever dimension Embed returns.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// DocumentSource loads a document as an ordered list of text segments.
// Binary-format parsing, OCR, and encoding detection live in the
// implementation, not in the core.
type DocumentSource interface {
	Load(ctx context.Context) ([]Segment, error)
}

// ProgressSink is a one-way destination for ProgressEvent. It may drop or
// buffer; the core never requires acknowledgment.
type ProgressSink interface {
	Emit(event ProgressEvent)
}

// NoopProgressSink discards every event. Useful as a default when the
// caller has no interest in progress reporting.
type NoopProgressSink struct{}

func (NoopProgressSink) Emit(ProgressEvent) {}
