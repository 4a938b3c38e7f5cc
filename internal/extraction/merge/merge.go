// Package merge combines per-(chunk,sub-domain) LLM output into a single
// chunk result, then combines chunk results into the final extraction
// output, deduplicating along the way.
package merge

import (
	"context"

	"github.com/specvital/worker/internal/domain/extraction"
)

// MergeChunk folds every sub-domain partial produced for a single chunk
// into one MergedChunkResult. subDomainOrder must list the sub-domain
// names in declaration order; it breaks ties when more than one
// sub-domain produced the same field.
func MergeChunk(chunkIndex int, partials []extraction.PartialResult, subDomainOrder []string) extraction.MergedChunkResult {
	rank := make(map[string]int, len(subDomainOrder))
	for i, name := range subDomainOrder {
		rank[name] = i
	}

	ordered := make([]extraction.PartialResult, len(partials))
	copy(ordered, partials)
	stableSortBySubDomainRank(ordered, rank)

	values := make(map[string][]valueBySource)
	fieldOrder := make([]string, 0)
	for _, p := range ordered {
		for name, v := range p.FieldValues {
			if _, seen := values[name]; !seen {
				fieldOrder = append(fieldOrder, name)
			}
			values[name] = append(values[name], valueBySource{
				subDomain:  p.SubDomainName,
				value:      v,
				confidence: p.SourceConfidence,
			})
		}
	}

	result := extraction.MergedChunkResult{
		ChunkIndex:  chunkIndex,
		FieldValues: make(map[string]extraction.Value, len(fieldOrder)),
		Provenance:  make(map[string][]string, len(fieldOrder)),
		Confidences: make(map[string][]float64, len(fieldOrder)),
	}

	for _, name := range fieldOrder {
		entries := values[name]
		for _, e := range entries {
			result.Provenance[name] = append(result.Provenance[name], e.subDomain)
			result.Confidences[name] = append(result.Confidences[name], e.confidence)
		}
		result.FieldValues[name] = selectChunkValue(entries)
	}

	return result
}

type valueBySource struct {
	subDomain  string
	value      extraction.Value
	confidence float64
}

func stableSortBySubDomainRank(partials []extraction.PartialResult, rank map[string]int) {
	for i := 1; i < len(partials); i++ {
		for j := i; j > 0 && rank[partials[j-1].SubDomainName] > rank[partials[j].SubDomainName]; j-- {
			partials[j-1], partials[j] = partials[j], partials[j-1]
		}
	}
}

func selectChunkValue(entries []valueBySource) extraction.Value {
	if len(entries) == 1 {
		return entries[0].value
	}

	if entries[0].value.Kind() == extraction.KindList {
		var all []extraction.Value
		for _, e := range entries {
			if list, ok := e.value.ListValue(); ok {
				all = append(all, list...)
			}
		}
		return extraction.List(dedupEqual(all))
	}

	for _, e := range entries {
		if !e.value.IsNull() {
			return e.value
		}
	}
	return extraction.Null()
}

func dedupEqual(values []extraction.Value) []extraction.Value {
	out := make([]extraction.Value, 0, len(values))
	for _, v := range values {
		dup := false
		for _, kept := range out {
			if kept.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// FieldMeta is the subset of FieldDefinition the cross-chunk merge needs
// to decide selection policy.
type FieldMeta struct {
	Unique bool
}

type occurrence struct {
	chunkIndex int
	value      extraction.Value
	confidence float64
}

// CrossChunkMerge combines MergedChunkResult values across chunks into one
// FinalResult, applying the unique/non-unique scalar rule, list
// concatenation, and recursive dict merge. Embedding-based string
// deduplication and equality-based non-string deduplication are applied
// per field via embedder (nil disables embedding dedup, falling back to
// equality for strings too).
func CrossChunkMerge(ctx context.Context, chunks []extraction.MergedChunkResult, fieldMeta map[string]FieldMeta, embedder extraction.Embedder, dedupThreshold float64) (extraction.FinalResult, error) {
	grouped := make(map[string][]occurrence)
	fieldOrder := make([]string, 0)

	for _, c := range chunks {
		for name, v := range c.FieldValues {
			if _, seen := grouped[name]; !seen {
				fieldOrder = append(fieldOrder, name)
			}
			conf := maxConfidence(c.Confidences[name])
			grouped[name] = append(grouped[name], occurrence{chunkIndex: c.ChunkIndex, value: v, confidence: conf})
		}
	}

	result := extraction.FinalResult{
		FieldValues: make(map[string]extraction.Value, len(fieldOrder)),
		Provenance:  make(map[string][]string, len(fieldOrder)),
		Confidences: make(map[string][]float64, len(fieldOrder)),
	}

	for _, name := range fieldOrder {
		occs := grouped[name]
		for _, o := range occs {
			result.Confidences[name] = append(result.Confidences[name], o.confidence)
		}

		kind := firstNonNullKind(occs)
		switch kind {
		case extraction.KindList:
			merged, err := mergeLists(ctx, occs, embedder, dedupThreshold)
			if err != nil {
				return extraction.FinalResult{}, err
			}
			result.FieldValues[name] = merged
		case extraction.KindObject:
			result.FieldValues[name] = mergeObjects(occs)
		default:
			unique := fieldMeta[name].Unique
			val, provenance := selectScalar(occs, unique)
			result.FieldValues[name] = val
			result.Provenance[name] = provenance
		}
	}

	return result, nil
}

func maxConfidence(confs []float64) float64 {
	best := 0.0
	for _, c := range confs {
		if c > best {
			best = c
		}
	}
	return best
}

func firstNonNullKind(occs []occurrence) extraction.ValueKind {
	for _, o := range occs {
		if !o.value.IsNull() {
			return o.value.Kind()
		}
	}
	return extraction.KindNull
}

// selectScalar picks the highest-aggregate-confidence value; ties break by
// lowest chunk index. For non-unique fields, alternate values are recorded
// under provenance for inspection.
func selectScalar(occs []occurrence, unique bool) (extraction.Value, []string) {
	best := -1
	for i, o := range occs {
		if o.value.IsNull() {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if o.confidence > occs[best].confidence ||
			(o.confidence == occs[best].confidence && o.chunkIndex < occs[best].chunkIndex) {
			best = i
		}
	}
	if best == -1 {
		return extraction.Null(), nil
	}

	var provenance []string
	if !unique {
		for i, o := range occs {
			if i == best || o.value.IsNull() {
				continue
			}
			provenance = append(provenance, renderAlt(o.value))
		}
	}
	return occs[best].value, provenance
}

func renderAlt(v extraction.Value) string {
	if s, ok := v.StringValue(); ok {
		return s
	}
	return ""
}

func mergeLists(ctx context.Context, occs []occurrence, embedder extraction.Embedder, threshold float64) (extraction.Value, error) {
	var all []extraction.Value
	for _, o := range occs {
		if list, ok := o.value.ListValue(); ok {
			all = append(all, list...)
		}
	}

	allStrings := true
	strs := make([]string, 0, len(all))
	for _, v := range all {
		s, ok := v.StringValue()
		if !ok {
			allStrings = false
			break
		}
		strs = append(strs, s)
	}

	if allStrings && embedder != nil && len(strs) > 0 {
		deduped, err := DedupStrings(ctx, embedder, strs, threshold)
		if err != nil {
			return extraction.Value{}, err
		}
		out := make([]extraction.Value, 0, len(deduped))
		for _, s := range deduped {
			out = append(out, extraction.String(s))
		}
		return extraction.List(out), nil
	}

	return extraction.List(dedupEqual(all)), nil
}

// mergeObjects recursively merges dict-valued fields by key, routing each
// leaf's cross-chunk values through the same confidence/chunk-index
// selection selectScalar uses rather than taking whichever chunk's value
// happened to be seen first.
func mergeObjects(occs []occurrence) extraction.Value {
	keyed := make(map[string][]occurrence)
	keyOrder := make([]string, 0)
	for _, o := range occs {
		obj, ok := o.value.ObjectValue()
		if !ok {
			continue
		}
		for k, v := range obj {
			if _, seen := keyed[k]; !seen {
				keyOrder = append(keyOrder, k)
			}
			keyed[k] = append(keyed[k], occurrence{chunkIndex: o.chunkIndex, value: v, confidence: o.confidence})
		}
	}

	merged := make(map[string]extraction.Value, len(keyOrder))
	for _, k := range keyOrder {
		leafOccs := keyed[k]
		switch firstNonNullKind(leafOccs) {
		case extraction.KindObject:
			merged[k] = mergeObjects(leafOccs)
		case extraction.KindList:
			var all []extraction.Value
			for _, o := range leafOccs {
				if list, ok := o.value.ListValue(); ok {
					all = append(all, list...)
				}
			}
			merged[k] = extraction.List(dedupEqual(all))
		default:
			val, _ := selectScalar(leafOccs, true)
			merged[k] = val
		}
	}
	return extraction.Object(merged)
}
