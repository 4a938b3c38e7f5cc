package extraction

import (
	"fmt"
	"regexp"
)

// FieldType enumerates the atomic and structural types a FieldDefinition
// may declare.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
	FieldTypeList   FieldType = "list"
	FieldTypeObject FieldType = "object"
	FieldTypeBool   FieldType = "bool"
)

// ValidationLevel controls how a FieldDefinition's validation_function_id
// failure is surfaced by callers (the core never enforces severity itself).
type ValidationLevel string

const (
	ValidationInfo    ValidationLevel = "info"
	ValidationWarning ValidationLevel = "warning"
	ValidationError   ValidationLevel = "error"
)

// FieldDefinition is an atomic extractable value within a SubDomainDefinition.
type FieldDefinition struct {
	Name                   string
	Description            string
	Type                   FieldType
	Required               bool
	Unique                 bool
	Examples               []string
	ExtractionInstructions string
	Keywords               []string
	NegativeKeywords       []string
	ExtractionPriority     int
	ConfidenceThreshold    float64
	FormattingPattern      *regexp.Regexp
	FormatFunctionID       string
	ValidationFunctionID   string
	PostProcessFunctionID  string
	RelatedFields          []string
	ValidationLevel        ValidationLevel
}

// SubDomainDefinition groups a focused set of fields.
type SubDomainDefinition struct {
	Name                           string
	Description                    string
	Fields                         []FieldDefinition
	ExtractionInstructions         string
	Priority                       int
	AntiHallucinationInstructions  string
	PreExtractionFunctionID        string
	PostExtractionFunctionID       string
}

// DomainDefinition is a top-level schema entry.
type DomainDefinition struct {
	Name                          string
	Description                   string
	SubDomains                    []SubDomainDefinition
	ExtractionInstructions        string
	AntiHallucinationInstructions string
	Keywords                      []string
	ConfidenceThreshold           float64
	PreExtractionFunctionID       string
	PostExtractionFunctionID      string
	ValidationFunctionID          string
	MergeFunctionID               string
}

// FieldByName returns the field with the given name within this sub-domain,
// or false if no such field is declared.
func (s SubDomainDefinition) FieldByName(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// SubDomainByName returns the sub-domain with the given name within this
// domain, or false if no such sub-domain is declared.
func (d DomainDefinition) SubDomainByName(name string) (SubDomainDefinition, bool) {
	for _, s := range d.SubDomains {
		if s.Name == name {
			return s, true
		}
	}
	return SubDomainDefinition{}, false
}

// Validate checks structural invariants of a DomainDefinition: unique
// sub-domain names, unique field names per sub-domain, and, when fr is
// non-nil, that every field's format, validation and post-process function
// IDs resolve in fr. With a nil fr, function IDs are not checked.
func (d DomainDefinition) Validate(fr *FunctionRegistry) error {
	if d.Name == "" {
		return fmt.Errorf("%w: domain name is required", ErrInvalidInput)
	}

	seenSub := make(map[string]bool, len(d.SubDomains))
	for _, sub := range d.SubDomains {
		if sub.Name == "" {
			return fmt.Errorf("%w: sub-domain name is required in domain %q", ErrInvalidInput, d.Name)
		}
		if seenSub[sub.Name] {
			return fmt.Errorf("%w: duplicate sub-domain %q in domain %q", ErrInvalidInput, sub.Name, d.Name)
		}
		seenSub[sub.Name] = true

		seenField := make(map[string]bool, len(sub.Fields))
		for _, f := range sub.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: field name is required in %s/%s", ErrInvalidInput, d.Name, sub.Name)
			}
			if seenField[f.Name] {
				return fmt.Errorf("%w: duplicate field %q in %s/%s", ErrInvalidInput, f.Name, d.Name, sub.Name)
			}
			seenField[f.Name] = true

			if fr != nil {
				for _, fnID := range []string{f.FormatFunctionID, f.ValidationFunctionID, f.PostProcessFunctionID} {
					if fnID == "" {
						continue
					}
					if !fr.Has(fnID) {
						return fmt.Errorf("%w: function %q referenced by field %s/%s/%s does not resolve",
							ErrUnknownFunction, fnID, d.Name, sub.Name, f.Name)
					}
				}
			}
		}
	}

	return nil
}
