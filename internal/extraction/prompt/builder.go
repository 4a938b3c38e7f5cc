// Package prompt assembles the LLM prompts the extraction engine sends for
// each (chunk, sub-domain) job.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specvital/worker/internal/domain/extraction"
)

var coreAntiHallucination = []string{
	"Only extract values that are explicitly stated in the provided text.",
	"Do not infer, guess, or fabricate any value not directly supported by the text.",
	"If a field's value cannot be found, return null for that field rather than a placeholder.",
	"Do not copy example values into the output; examples are illustrations, not answers.",
}

// Builder assembles deterministic extraction prompts from the Domain
// Registry's schema and a chunk of source text.
type Builder struct{}

// New returns a Builder. It holds no state; construction exists for
// symmetry with the rest of the pipeline's component types.
func New() *Builder {
	return &Builder{}
}

// Build assembles the full extraction prompt for domain/subDomains/text. If
// fields is non-empty, only fields belonging to the selected sub-domains and
// named in fields are rendered. Build fails with ErrSchemaEmpty if
// subDomains is empty.
func (b *Builder) Build(text string, domain extraction.DomainDefinition, subDomains []extraction.SubDomainDefinition, fields []string) (string, error) {
	if len(subDomains) == 0 {
		return "", extraction.ErrSchemaEmpty
	}

	var sb strings.Builder
	writeDomainHeader(&sb, domain)

	allowed := toSet(fields)
	for _, sub := range subDomains {
		writeSubDomain(&sb, sub, allowed)
	}

	writeAntiHallucination(&sb, domain, subDomains)
	writeOutputFormatBlock(&sb)

	sb.WriteString("\n<text>\n")
	sb.WriteString(text)
	sb.WriteString("\n</text>\n")

	return sb.String(), nil
}

// BuildFallback emits a minimal prompt (header + field bullets +
// anti-hallucination + text) for use when Build cannot be satisfied because
// a schema dependency failed to load. It never fails.
func (b *Builder) BuildFallback(text string, subDomains []extraction.SubDomainDefinition) string {
	var sb strings.Builder
	sb.WriteString("Extract the following fields from the text below.\n\n")

	for _, sub := range subDomains {
		for _, f := range orderedFields(sub.Fields) {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, f.Description))
		}
	}

	sb.WriteString("\n")
	for _, line := range coreAntiHallucination {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n<text>\n")
	sb.WriteString(text)
	sb.WriteString("\n</text>\n")
	return sb.String()
}

func writeDomainHeader(sb *strings.Builder, domain extraction.DomainDefinition) {
	sb.WriteString(fmt.Sprintf("# Domain: %s\n", domain.Name))
	if domain.Description != "" {
		sb.WriteString(domain.Description)
		sb.WriteString("\n")
	}
	if domain.ExtractionInstructions != "" {
		sb.WriteString(domain.ExtractionInstructions)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeSubDomain(sb *strings.Builder, sub extraction.SubDomainDefinition, allowed map[string]bool) {
	sb.WriteString(fmt.Sprintf("## %s\n", sub.Name))
	if sub.Description != "" {
		sb.WriteString(sub.Description)
		sb.WriteString("\n")
	}
	if sub.ExtractionInstructions != "" {
		sb.WriteString(sub.ExtractionInstructions)
		sb.WriteString("\n")
	}

	for _, f := range orderedFields(sub.Fields) {
		if len(allowed) > 0 && !allowed[f.Name] {
			continue
		}
		writeFieldBullet(sb, f)
	}
	sb.WriteString("\n")
}

func writeFieldBullet(sb *strings.Builder, f extraction.FieldDefinition) {
	sb.WriteString(fmt.Sprintf("- **%s** (%s)", f.Name, f.Type))
	if f.Required {
		sb.WriteString(" [required]")
	}
	if f.Unique {
		sb.WriteString(" [unique]")
	}
	sb.WriteString(": ")
	sb.WriteString(f.Description)
	if f.ExtractionInstructions != "" {
		sb.WriteString(". ")
		sb.WriteString(f.ExtractionInstructions)
	}
	if len(f.Examples) > 0 {
		sb.WriteString(fmt.Sprintf(" (examples: %s)", strings.Join(f.Examples, ", ")))
	}
	sb.WriteString("\n")
}

// orderedFields sorts by ExtractionPriority descending, ties broken by
// declaration order (a stable sort over the original index preserves this).
func orderedFields(fields []extraction.FieldDefinition) []extraction.FieldDefinition {
	out := make([]extraction.FieldDefinition, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExtractionPriority > out[j].ExtractionPriority
	})
	return out
}

func writeAntiHallucination(sb *strings.Builder, domain extraction.DomainDefinition, subDomains []extraction.SubDomainDefinition) {
	sb.WriteString("## Rules\n")
	for _, line := range coreAntiHallucination {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if domain.AntiHallucinationInstructions != "" {
		sb.WriteString("- ")
		sb.WriteString(domain.AntiHallucinationInstructions)
		sb.WriteString("\n")
	}
	for _, sub := range subDomains {
		if sub.AntiHallucinationInstructions != "" {
			sb.WriteString("- ")
			sb.WriteString(sub.AntiHallucinationInstructions)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

func writeOutputFormatBlock(sb *strings.Builder) {
	sb.WriteString("## Output Format\n")
	sb.WriteString("Respond with a single JSON object keyed by field name. ")
	sb.WriteString("Dates must be ISO-8601 (YYYY-MM-DD). ")
	sb.WriteString("Multi-valued fields must be JSON arrays. ")
	sb.WriteString("Fields with no value in the text must be null.\n")
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
