package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Func is a named formatter/validator/post-processor callable referenced by
// a FieldDefinition, SubDomainDefinition or DomainDefinition by function ID.
type Func func(args ...any) (any, error)

// FunctionRegistry is a name -> Func mapping, seeded with the default
// formatters, validators and post-processors. Lifecycle mirrors Registry:
// populate during init, read-only (lock-free for Has/Call is not offered,
// but the mutex only guards the map, never blocks on execution) afterwards.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewFunctionRegistry returns a FunctionRegistry pre-seeded with the
// default identity/date/validation implementations.
func NewFunctionRegistry() *FunctionRegistry {
	fr := &FunctionRegistry{funcs: make(map[string]Func)}
	fr.registerDefaults()
	return fr
}

// Register adds or overwrites a named function.
func (fr *FunctionRegistry) Register(id string, fn Func) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.funcs[id] = fn
}

// Has reports whether id resolves in the registry.
func (fr *FunctionRegistry) Has(id string) bool {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	_, ok := fr.funcs[id]
	return ok
}

// Call invokes the named function, failing with ErrUnknownFunction if id
// does not resolve.
func (fr *FunctionRegistry) Call(id string, args ...any) (any, error) {
	fr.mu.RLock()
	fn, ok := fr.funcs[id]
	fr.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return fn(args...)
}

// Names returns every registered function ID.
func (fr *FunctionRegistry) Names() []string {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	out := make([]string, 0, len(fr.funcs))
	for name := range fr.funcs {
		out = append(out, name)
	}
	return out
}

func (fr *FunctionRegistry) registerDefaults() {
	fr.Register("format_date_iso", func(args ...any) (any, error) { return formatDateISO(arg0(args)), nil })
	fr.Register("format_date_us", func(args ...any) (any, error) { return formatDateUS(arg0(args)), nil })
	fr.Register("format_date_eu", func(args ...any) (any, error) { return formatDateEU(arg0(args)), nil })
	fr.Register("validate_date", func(args ...any) (any, error) { return validateDate(arg0(args)), nil })
	fr.Register("validate_email", func(args ...any) (any, error) { return validateEmail(arg0(args)), nil })
	fr.Register("validate_phone", func(args ...any) (any, error) { return validatePhone(arg0(args)), nil })
	fr.Register("normalize_whitespace", func(args ...any) (any, error) { return normalizeWhitespace(arg0(args)), nil })
	fr.Register("capitalize_names", func(args ...any) (any, error) { return capitalizeNames(arg0(args)), nil })
	fr.Register("extract_numbers", func(args ...any) (any, error) { return extractNumbers(arg0(args)), nil })
}

func arg0(args []any) string {
	if len(args) == 0 {
		return ""
	}
	s, _ := args[0].(string)
	return s
}

// dateLayouts is the common format list the seeded date functions accept,
// in the order they are tried. Unparseable inputs are returned unchanged,
// matching the original Python implementation's fall-through behavior.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var isoDateInText = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

func parseKnownDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDateISO(s string) string {
	if t, ok := parseKnownDate(s); ok {
		return t.Format("2006-01-02")
	}
	if m := isoDateInText.FindString(s); m != "" {
		return m
	}
	return s
}

func formatDateUS(s string) string {
	iso := formatDateISO(s)
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t.Format("01/02/2006")
	}
	return s
}

func formatDateEU(s string) string {
	iso := formatDateISO(s)
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t.Format("02/01/2006")
	}
	return s
}

func validateDate(s string) bool {
	_, ok := parseKnownDate(s)
	return ok
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

var phoneSeparators = regexp.MustCompile(`[\s\-().]`)
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func validatePhone(s string) bool {
	clean := phoneSeparators.ReplaceAllString(s, "")
	return phonePattern.MatchString(clean)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// capitalizeNames capitalizes each whitespace-separated token, preserving
// hyphenated parts per sub-token and special-casing "Mc"/"Mac" prefixes by
// capitalizing the suffix separately (e.g. "mcdonald" -> "McDonald").
func capitalizeNames(s string) string {
	if s == "" {
		return s
	}

	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch {
		case strings.Contains(part, "-"):
			hyphenParts := strings.Split(part, "-")
			for i, hp := range hyphenParts {
				hyphenParts[i] = capitalizeWord(hp)
			}
			out = append(out, strings.Join(hyphenParts, "-"))
		case len(part) > 3 && hasFoldPrefix(part, "mc", "mac"):
			n := 3
			if hasFoldPrefix(part, "mc") {
				n = 2
			}
			out = append(out, capitalizeWord(part[:n])+capitalizeWord(part[n:]))
		default:
			out = append(out, capitalizeWord(part))
		}
	}
	return strings.Join(out, " ")
}

func hasFoldPrefix(s string, prefixes ...string) bool {
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func capitalizeWord(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

var numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

func extractNumbers(s string) []string {
	if s == "" {
		return nil
	}
	return numberPattern.FindAllString(s, -1)
}
