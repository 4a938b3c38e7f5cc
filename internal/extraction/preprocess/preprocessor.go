// Package preprocess rewrites a free-form query into a structured
// PreprocessedQuery using a single LLM call, degrading gracefully when
// the reply can't be trusted.
package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/specvital/worker/internal/domain/extraction"
)

const minConfidence = 0.7

// Preprocessor rewrites queries with a single Completion call, caching
// its rendering of the Registry's available domains until the Registry
// is re-populated.
type Preprocessor struct {
	completion extraction.Completion
	registry   *extraction.Registry

	mu          sync.Mutex
	cachedDescr string
	cachedGen   int
}

// New returns a Preprocessor drawing its available-domains description
// from registry and issuing its rewrite call through completion.
func New(completion extraction.Completion, registry *extraction.Registry) *Preprocessor {
	return &Preprocessor{completion: completion, registry: registry}
}

type reply struct {
	ReformulatedQuery     string   `json:"reformulated_query"`
	IdentifiedDomain      string   `json:"identified_domain"`
	IdentifiedFields      []string `json:"identified_fields"`
	ExtractionRequirements map[string]string `json:"extraction_requirements"`
	Confidence            float64  `json:"confidence"`
}

// Process asks the LLM to analyze query against the Registry's available
// domains and parses a structured rewrite. A parse failure or confidence
// below 0.7 degrades to {Reformulated: query, Confidence: 0}; the
// pipeline then continues with the unmodified query. Cancellation
// returns extraction.ErrCancelled.
func (p *Preprocessor) Process(ctx context.Context, query string) (extraction.PreprocessedQuery, error) {
	degraded := extraction.PreprocessedQuery{Original: query, Reformulated: query, Confidence: 0}

	prompt := p.buildPrompt(query)
	out, err := p.completion.Generate(ctx, prompt, extraction.CompletionOptions{Temperature: 0})
	if err != nil {
		if ctx.Err() != nil {
			return extraction.PreprocessedQuery{}, extraction.ErrCancelled
		}
		return degraded, nil
	}

	var r reply
	if jsonErr := json.Unmarshal([]byte(stripFence(out)), &r); jsonErr != nil {
		return degraded, nil
	}
	if r.Confidence < minConfidence {
		return degraded, nil
	}

	return extraction.PreprocessedQuery{
		Original:         query,
		Reformulated:     r.ReformulatedQuery,
		IdentifiedDomain: r.IdentifiedDomain,
		IdentifiedFields: r.IdentifiedFields,
		Requirements:     r.ExtractionRequirements,
		Confidence:       r.Confidence,
	}, nil
}

func (p *Preprocessor) buildPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString("You analyze a user's extraction request against a registry of available domains.\n")
	sb.WriteString(p.availableDomainsDescription())
	sb.WriteString("\nUser query:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nRespond with a single JSON object with keys: ")
	sb.WriteString(`reformulated_query, identified_domain, identified_fields, extraction_requirements, confidence.`)
	sb.WriteString("\nconfidence is a number in [0,1] reflecting how certain you are of the match.\n")
	return sb.String()
}

// availableDomainsDescription renders the Registry's domains/sub-domains/
// fields, caching the result until the Registry's generation counter
// changes (i.e. until it is re-populated).
func (p *Preprocessor) availableDomainsDescription() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	gen := p.registry.Generation()
	if p.cachedDescr != "" && p.cachedGen == gen {
		return p.cachedDescr
	}

	var sb strings.Builder
	sb.WriteString("Available domains:\n")
	for _, d := range p.registry.List() {
		fmt.Fprintf(&sb, "- %s: %s\n", d.Name, d.Description)
		for _, sub := range d.SubDomains {
			fmt.Fprintf(&sb, "  - %s\n", sub.Name)
			for _, f := range sub.Fields {
				fmt.Fprintf(&sb, "    - %s: %s\n", f.Name, f.Description)
			}
		}
	}

	p.cachedDescr = sb.String()
	p.cachedGen = gen
	return p.cachedDescr
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
