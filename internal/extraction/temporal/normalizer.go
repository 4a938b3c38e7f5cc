// Package temporal normalizes extracted date-like field values to
// ISO-8601 and builds sorted event timelines.
package temporal

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/specvital/worker/internal/domain/extraction"
)

var knownLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// Event is a single occurrence carrying a free-form date string; after
// BuildTimeline runs it also carries NormalizedDate.
type Event struct {
	Attrs          map[string]extraction.Value
	Date           string
	NormalizedDate string
}

// Normalizer converts free-form date text to ISO-8601, falling back to an
// LLM single-shot prompt when pattern matching fails.
type Normalizer struct {
	completion extraction.Completion
}

// New returns a Normalizer. completion may be nil, in which case
// NormalizeDate only tries pattern matching and returns "" on failure.
func New(completion extraction.Completion) *Normalizer {
	return &Normalizer{completion: completion}
}

// NormalizeDate converts s to "YYYY-MM-DD", returning "" when s is empty
// or unparseable (including after LLM fallback).
func (n *Normalizer) NormalizeDate(ctx context.Context, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, ok := parseKnown(s); ok {
		return t.Format("2006-01-02")
	}
	if n.completion == nil {
		return ""
	}

	prompt := "Convert the following date to YYYY-MM-DD format. Respond with only the date, nothing else.\n\n" + s
	reply, err := n.completion.Generate(ctx, prompt, extraction.CompletionOptions{Temperature: 0, MaxTokens: 16})
	if err != nil {
		return ""
	}
	reply = strings.TrimSpace(reply)
	if t, ok := parseKnown(reply); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

func parseKnown(s string) (time.Time, bool) {
	for _, layout := range knownLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BuildTimeline normalizes each event's Date and sorts the result stably
// ascending by NormalizedDate; events lacking a parseable date sort last,
// preserving their relative input order.
func (n *Normalizer) BuildTimeline(ctx context.Context, events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	for i := range out {
		out[i].NormalizedDate = n.NormalizeDate(ctx, out[i].Date)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].NormalizedDate, out[j].NormalizedDate
		if di == "" {
			return false
		}
		if dj == "" {
			return true
		}
		return di < dj
	})
	return out
}

// dateFieldSuffix names fields that should be date-normalized by
// naming convention even when their FieldType isn't explicitly "date".
const dateFieldSuffix = "_date"

// NormalizeFields walks a field-value tree in place (via a rebuilt copy,
// Value being immutable), converting every date-typed field and every
// field whose name ends with "_date" to ISO-8601 text.
func (n *Normalizer) NormalizeFields(ctx context.Context, fields map[string]extraction.Value, dateFields map[string]bool) map[string]extraction.Value {
	out := make(map[string]extraction.Value, len(fields))
	for k, v := range fields {
		if (dateFields[k] || strings.HasSuffix(k, dateFieldSuffix)) && v.Kind() == extraction.KindString {
			s, _ := v.StringValue()
			normalized := n.NormalizeDate(ctx, s)
			if normalized == "" {
				out[k] = extraction.Null()
			} else {
				out[k] = extraction.String(normalized)
			}
			continue
		}
		out[k] = v
	}
	return out
}
