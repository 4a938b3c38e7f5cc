// Package identify scores a free-form query against the Domain Registry
// and produces an ExtractionPlan naming the domains, sub-domains and
// fields most likely relevant to it.
//
// The scoring arithmetic is recovered verbatim from the original Python
// domain identifier this package replaces, including its somewhat
// idiosyncratic confidence ladder (0.6/0.7/0.75/0.8/0.85/0.9/0.95) and
// dual-gate field retention rule.
package identify

import (
	"sort"
	"strings"

	"github.com/specvital/worker/internal/domain/extraction"
)

const (
	domainCandidateThreshold = 0.6
	defaultMinConfidence     = 0.8
	topDomains               = 2
	topFields                = 6

	generalDomainName = "general"
	generalSubDomain  = "general_content"
)

// Identifier scores queries against a Registry.
type Identifier struct {
	registry *extraction.Registry
}

// New returns an Identifier bound to registry.
func New(registry *extraction.Registry) *Identifier {
	return &Identifier{registry: registry}
}

type domainScore struct {
	name       string
	confidence float64
	rank       int
}

// scoreDomain computes the composite domain-match confidence per the
// recovered ladder: domain name found anywhere in the query -> 0.95
// (every occurrence counts as an exact phrase match); multi-word keyword match -> 0.85, scaled
// per-keyword match -> min(0.7+0.05*matches, 0.9), and description
// term-overlap ratio > 0.5 -> 0.75. An LLM-identified domain hint, if
// supplied, boosts to >= 0.9.
func scoreDomain(query string, d extraction.DomainDefinition, llmHinted bool) float64 {
	queryLower := strings.ToLower(query)
	queryTerms := termSet(queryLower)
	nameLower := strings.ToLower(d.Name)

	confidence := 0.0

	if strings.Contains(queryLower, nameLower) {
		confidence = max(confidence, 0.9)
		// Any occurrence of the domain name is treated as an exact phrase
		// match, which lifts the 0.9 name-match score to 0.95.
		confidence = max(confidence, 0.95)
	}

	multiWordMatches := 0
	singleWordMatches := 0
	for _, kw := range d.Keywords {
		kwLower := strings.ToLower(kw)
		if strings.Contains(queryLower, kwLower) {
			if len(strings.Fields(kwLower)) > 1 {
				multiWordMatches++
			} else {
				singleWordMatches++
			}
		}
	}
	if multiWordMatches > 0 {
		confidence = max(confidence, 0.85)
	}
	totalMatches := multiWordMatches + singleWordMatches
	if totalMatches > 0 {
		confidence = max(confidence, min(0.7+float64(totalMatches)*0.05, 0.9))
	}

	domainTerms := termSet(nameLower + " " + strings.ToLower(d.Description))
	overlapRatio := overlapRatio(queryTerms, domainTerms)
	if overlapRatio > 0.5 {
		confidence = max(confidence, 0.75)
	}

	if llmHinted {
		confidence = max(confidence, 0.9)
	}

	return confidence
}

// scoreField computes field-match confidence: field-name substring match
// (0.9), field-description term presence (0.7), field-keyword matches
// (0.8). The sub-domain-name boost lives in Plan's relevance scoring,
// not here.
func scoreField(query string, sub extraction.SubDomainDefinition, f extraction.FieldDefinition) float64 {
	queryLower := strings.ToLower(query)
	queryTerms := termSet(queryLower)

	confidence := 0.0
	if strings.Contains(queryLower, strings.ToLower(f.Name)) {
		confidence = max(confidence, 0.9)
	}

	descTerms := strings.Fields(strings.ToLower(f.Description))
	for _, w := range descTerms {
		if queryTerms[w] {
			confidence = max(confidence, 0.7)
			break
		}
	}

	for _, kw := range f.Keywords {
		if strings.Contains(queryLower, strings.ToLower(kw)) {
			confidence = max(confidence, 0.8)
			break
		}
	}

	return confidence
}

// IdentifyDomains scores every registered domain and returns candidates
// (confidence >= domainCandidateThreshold), sorted by confidence
// descending, ties broken by registration order.
func (id *Identifier) IdentifyDomains(query string, llmHintedDomain string) []domainScore {
	var scores []domainScore
	for i, d := range id.registry.List() {
		hinted := llmHintedDomain != "" && strings.EqualFold(llmHintedDomain, d.Name)
		conf := scoreDomain(query, d, hinted)
		if conf >= domainCandidateThreshold {
			scores = append(scores, domainScore{name: d.Name, confidence: conf, rank: i})
		}
	}
	sortByConfidenceThenRank(scores)
	return scores
}

// Plan builds an ExtractionPlan for query, selecting up to topDomains
// domains and topFields fields per the recovered dual-gate retention
// rule. Falls back to the single highest-confidence domain, then to
// "general/general_content" if nothing clears the gates.
func (id *Identifier) Plan(query string, llmHintedDomain string, minConfidence float64) extraction.ExtractionPlan {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}

	queryLower := strings.ToLower(query)
	queryTerms := termSet(queryLower)

	domains := id.IdentifyDomains(query, llmHintedDomain)

	type relevance struct {
		name  string
		score float64
	}
	var relevant []relevance
	for _, ds := range domains {
		if ds.confidence < minConfidence {
			continue
		}
		d, ok := id.registry.Get(ds.name)
		if !ok {
			continue
		}
		domainTerms := termSet(strings.ToLower(d.Name) + " " + strings.ToLower(d.Description))
		ratio := overlapRatio(queryTerms, domainTerms)
		if ratio < 0.3 && ds.confidence < 0.9 {
			continue
		}
		relevant = append(relevant, relevance{name: ds.name, score: ds.confidence + ratio*0.2})
	}
	sort.SliceStable(relevant, func(i, j int) bool { return relevant[i].score > relevant[j].score })

	var topDomainNames []string
	for i := 0; i < len(relevant) && i < topDomains; i++ {
		topDomainNames = append(topDomainNames, relevant[i].name)
	}
	if len(topDomainNames) == 0 && len(domains) > 0 {
		topDomainNames = []string{domains[0].name}
	}
	if len(topDomainNames) == 0 {
		return extraction.ExtractionPlan{
			Domain:     generalDomainName,
			SubDomains: []string{generalSubDomain},
		}
	}

	var fieldRel []struct {
		domain, sub, field string
		score              float64
	}
	for _, domainName := range topDomainNames {
		d, ok := id.registry.Get(domainName)
		if !ok {
			continue
		}
		for _, sub := range d.SubDomains {
			for _, f := range sub.Fields {
				conf := scoreField(query, sub, f)
				if conf < minConfidence {
					continue
				}
				fieldTerms := termSet(strings.ToLower(f.Name) + " " + strings.ToLower(f.Description))
				ratio := overlapRatio(queryTerms, fieldTerms)

				boost := 0.0
				for t := range queryTerms {
					switch {
					case strings.Contains(strings.ToLower(f.Name), t):
						boost += 0.15
					case strings.Contains(strings.ToLower(f.Description), t):
						boost += 0.1
					case strings.Contains(strings.ToLower(sub.Name), t):
						boost += 0.05
					}
				}

				if ratio < 0.2 && conf < 0.85 && boost < 0.1 {
					continue
				}

				fieldRel = append(fieldRel, struct {
					domain, sub, field string
					score              float64
				}{domainName, sub.Name, f.Name, conf + ratio*0.15 + boost})
			}
		}
	}
	sort.SliceStable(fieldRel, func(i, j int) bool { return fieldRel[i].score > fieldRel[j].score })

	plan := extraction.ExtractionPlan{
		Domain:     topDomainNames[0],
		SubDomains: uniqueStrings(subDomainsFor(id.registry, topDomainNames)),
	}
	for i := 0; i < len(fieldRel) && i < topFields; i++ {
		plan.Fields = append(plan.Fields, fieldRel[i].field)
		plan.FieldPlans = append(plan.FieldPlans, extraction.FieldPlan{Name: fieldRel[i].field, Confidence: fieldRel[i].score})
	}

	return plan
}

func subDomainsFor(registry *extraction.Registry, domainNames []string) []string {
	var out []string
	for _, name := range domainNames {
		d, ok := registry.Get(name)
		if !ok {
			continue
		}
		for _, sub := range d.SubDomains {
			out = append(out, sub.Name)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sortByConfidenceThenRank(scores []domainScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].confidence != scores[j].confidence {
			return scores[i].confidence > scores[j].confidence
		}
		return scores[i].rank < scores[j].rank
	})
}

func termSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

func overlapRatio(query, other map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	overlap := 0
	for t := range query {
		if other[t] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(query))
}

