// Package nullfilter strips null, N/A, and empty values from an
// extraction result tree, matching the original Python implementation's
// exact NA-value vocabulary plus case- and accent-insensitive variants
// an LLM might emit instead (UNKNOWN, ÑA, etc.).
package nullfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/specvital/worker/internal/domain/extraction"
)

var foldCase = cases.Fold()

// stripAccents removes combining marks left behind by NFKD decomposition,
// so "Não" and "Nao" fold to the same key.
var stripAccents = runes.Remove(runes.In(unicode.Mn))

// naValues is the exact case-sensitive set of N/A-style sentinel strings
// recognized as absent, recovered verbatim from the original
// null_filter.py implementation this package replaces.
var naValues = map[string]bool{
	"N/A":             true,
	"n/a":             true,
	"NA":              true,
	"na":              true,
	"N/a":             true,
	"Not Available":   true,
	"not available":   true,
	"Not Applicable":  true,
	"not applicable":  true,
	"Unknown":         true,
	"unknown":         true,
}

// naValuesFolded is naValues' keys under case-folding and accent
// stripping, so "UNKNOWN", "ùnknown" and "Unknown" all match the one
// canonical form without growing naValues itself.
var naValuesFolded = buildFoldedSet(naValues)

func buildFoldedSet(values map[string]bool) map[string]bool {
	out := make(map[string]bool, len(values))
	for v := range values {
		out[foldKey(v)] = true
	}
	return out
}

func foldKey(s string) string {
	decomposed := norm.NFKD.String(s)
	stripped, _, err := transform.String(stripAccents, decomposed)
	if err != nil {
		stripped = decomposed
	}
	return foldCase.String(stripped)
}

// Options controls Null Filter behavior.
type Options struct {
	// DropZero additionally removes numeric zero values.
	DropZero bool
	// PreserveMetadata keeps keys prefixed with "_" even if their value
	// would otherwise be dropped.
	PreserveMetadata bool
	// PreserveFields names map keys that survive even if they become
	// empty after recursive filtering.
	PreserveFields map[string]bool
}

// Filter removes null/NA/empty values from fields, operating recursively
// over nested objects and lists. The input is not mutated.
func Filter(fields map[string]extraction.Value, opts Options) map[string]extraction.Value {
	out := make(map[string]extraction.Value, len(fields))
	for k, v := range fields {
		if opts.PreserveMetadata && len(k) > 0 && k[0] == '_' {
			out[k] = filterValue(v, opts)
			continue
		}
		if isAbsent(v, opts) {
			continue
		}
		filtered := filterValue(v, opts)
		if isEmptyContainer(filtered) && !opts.PreserveFields[k] {
			continue
		}
		out[k] = filtered
	}
	return out
}

func filterValue(v extraction.Value, opts Options) extraction.Value {
	switch v.Kind() {
	case extraction.KindObject:
		obj, _ := v.ObjectValue()
		return extraction.Object(Filter(obj, opts))
	case extraction.KindList:
		list, _ := v.ListValue()
		out := make([]extraction.Value, 0, len(list))
		for _, item := range list {
			if isAbsent(item, opts) {
				continue
			}
			filtered := filterValue(item, opts)
			if isEmptyContainer(filtered) {
				continue
			}
			out = append(out, filtered)
		}
		return extraction.List(out)
	default:
		return v
	}
}

func isAbsent(v extraction.Value, opts Options) bool {
	if v.IsNull() {
		return true
	}
	if s, ok := v.StringValue(); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || naValues[trimmed] {
			return true
		}
		if naValuesFolded[foldKey(trimmed)] {
			return true
		}
	}
	if opts.DropZero {
		if n, ok := v.NumberValue(); ok && n == 0 {
			return true
		}
	}
	return false
}

func isEmptyContainer(v extraction.Value) bool {
	switch v.Kind() {
	case extraction.KindObject:
		obj, _ := v.ObjectValue()
		return len(obj) == 0
	case extraction.KindList:
		list, _ := v.ListValue()
		return len(list) == 0
	default:
		return false
	}
}
