package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/specvital/worker/internal/adapter/ai/reliability"
	"github.com/specvital/worker/internal/domain/extraction"
)

const (
	defaultCompletionModel = "gemini-2.5-flash"
	defaultEmbeddingModel  = "text-embedding-004"
	defaultSeed            = int32(42) // fixed seed for deterministic output

	// maxOutputTokens caps a single completion call when the caller
	// doesn't specify one. Gemini 2.5 models support up to 65,536.
	maxOutputTokens = int32(8192)
)

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey          string
	CompletionModel string // default: gemini-2.5-flash
	EmbeddingModel  string // default: text-embedding-004
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("gemini API key is required")
	}
	return nil
}

// Provider implements extraction.Completion and extraction.Embedder using
// Google Gemini. A single Provider is shared across the Parallel
// Extraction Engine's concurrent workers: the rate limiter and circuit
// breakers it owns are safe for concurrent use. The rate limiter paces
// calls to the underlying transport; it does not serialize them.
type Provider struct {
	client          *genai.Client
	completionModel string
	embeddingModel  string

	rateLimiter     *reliability.RateLimiter
	completionCB    *reliability.CircuitBreaker
	embeddingCB     *reliability.CircuitBreaker
	completionRetry *reliability.Retryer
	embeddingRetry  *reliability.Retryer
}

// NewProvider creates a new Gemini-backed provider.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	completionModel := config.CompletionModel
	if completionModel == "" {
		completionModel = defaultCompletionModel
	}

	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	return &Provider{
		client:          client,
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		rateLimiter:     reliability.NewRateLimiter(0, 0),
		completionCB:    reliability.NewCircuitBreaker(reliability.DefaultCompletionCircuitConfig()),
		embeddingCB:     reliability.NewCircuitBreaker(reliability.DefaultEmbeddingCircuitConfig()),
		completionRetry: reliability.NewRetryer(reliability.DefaultCompletionRetryConfig()),
		embeddingRetry:  reliability.NewRetryer(reliability.DefaultEmbeddingRetryConfig()),
	}, nil
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	// genai.Client doesn't require explicit close.
	return nil
}

// Generate implements extraction.Completion. It issues a single,
// deterministic completion call through the retry/circuit-breaker/
// rate-limiter stack.
func (p *Provider) Generate(ctx context.Context, prompt string, opts extraction.CompletionOptions) (string, error) {
	var reply string
	err := p.completionRetry.Do(ctx, func() error {
		text, err := p.generateContent(ctx, prompt, opts)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	return reply, err
}

// generateContent calls the Gemini API with rate limiting and circuit
// breaker protection. Returns the response text.
func (p *Provider) generateContent(ctx context.Context, prompt string, opts extraction.CompletionOptions) (string, error) {
	if !p.completionCB.Allow() {
		return "", fmt.Errorf("%w: circuit breaker open", extraction.ErrProviderUnavailable)
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	temperature := float32(opts.Temperature)
	maxTokens := int32(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = maxOutputTokens
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		Seed:             genai.Ptr(defaultSeed),
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: "application/json",
		// Disable thinking: extraction prompts are short and don't
		// benefit from the dynamic thinking budget, and it adds
		// latency that matters when the engine fans out dozens of
		// jobs in parallel.
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.completionModel, genai.Text(prompt), config)
	if err != nil {
		p.completionCB.RecordFailure()
		slog.WarnContext(ctx, "gemini completion call failed",
			"model", p.completionModel,
			"error", err,
		)
		if reliability.IsRetryable(err) {
			return "", &reliability.RetryableError{Err: err}
		}
		return "", err
	}

	// Check FinishReason before extracting text. MAX_TOKENS indicates
	// output was truncated - not retryable, requires input reduction.
	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		switch candidate.FinishReason {
		case genai.FinishReasonMaxTokens:
			p.completionCB.RecordSuccess() // API worked correctly, just hit the limit
			slog.WarnContext(ctx, "gemini output truncated due to token limit",
				"model", p.completionModel,
				"finish_reason", candidate.FinishReason,
			)
			return "", fmt.Errorf("%w: reduce input size or split into chunks", extraction.ErrInvalidInput)
		case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
			p.completionCB.RecordSuccess() // API worked, content was blocked
			slog.WarnContext(ctx, "gemini output blocked by safety filters",
				"model", p.completionModel,
				"finish_reason", candidate.FinishReason,
			)
			return "", fmt.Errorf("%w: content blocked (%s)", extraction.ErrInvalidInput, candidate.FinishReason)
		}
	}

	text := result.Text()
	if text == "" {
		p.completionCB.RecordFailure()
		return "", errors.New("empty response from gemini")
	}

	p.completionCB.RecordSuccess()
	return text, nil
}

// Embed implements extraction.Embedder, batching all texts into a single
// EmbedContent call.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float64
	err := p.embeddingRetry.Do(ctx, func() error {
		v, err := p.embedContent(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	return vectors, err
}

func (p *Provider) embedContent(ctx context.Context, texts []string) ([][]float64, error) {
	if !p.embeddingCB.Allow() {
		return nil, fmt.Errorf("%w: circuit breaker open", extraction.ErrProviderUnavailable)
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	result, err := p.client.Models.EmbedContent(ctx, p.embeddingModel, contents, nil)
	if err != nil {
		p.embeddingCB.RecordFailure()
		slog.WarnContext(ctx, "gemini embedding call failed", "model", p.embeddingModel, "error", err)
		if reliability.IsRetryable(err) {
			return nil, &reliability.RetryableError{Err: err}
		}
		return nil, err
	}

	if len(result.Embeddings) != len(texts) {
		p.embeddingCB.RecordFailure()
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, e := range result.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	p.embeddingCB.RecordSuccess()
	return vectors, nil
}
