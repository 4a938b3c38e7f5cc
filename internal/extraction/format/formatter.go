// Package format renders a FinalResult as structured data, flat text, or
// pretty-printed tagged markup.
package format

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/specvital/worker/internal/domain/extraction"
)

// Structured renders result as a nested map keyed by field name, with an
// optional metadata block under "_metadata". The input is not mutated.
func Structured(result extraction.FinalResult, metadata map[string]string) map[string]any {
	out := make(map[string]any, len(result.FieldValues)+1)
	for k, v := range result.FieldValues {
		out[k] = v.Any()
	}
	if len(metadata) > 0 {
		meta := make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
		out["_metadata"] = meta
	}
	return out
}

// FlatText renders one "key: value" per line. Lists of maps render as
// "key: k1: v1, k2: v2"; nested maps render as "parent.child: value".
func FlatText(result extraction.FinalResult, timeline []string) string {
	names := sortedKeys(result.FieldValues)

	var sb strings.Builder
	for _, name := range names {
		writeFlatValue(&sb, name, result.FieldValues[name])
	}
	if len(timeline) > 0 {
		sb.WriteString("timeline:\n")
		for _, line := range timeline {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func writeFlatValue(sb *strings.Builder, key string, v extraction.Value) {
	switch v.Kind() {
	case extraction.KindObject:
		obj, _ := v.ObjectValue()
		for _, k := range sortedKeysMap(obj) {
			writeFlatValue(sb, key+"."+k, obj[k])
		}
	case extraction.KindList:
		list, _ := v.ListValue()
		fmt.Fprintf(sb, "%s: %s\n", key, flatListRender(list))
	default:
		fmt.Fprintf(sb, "%s: %s\n", key, flatScalar(v))
	}
}

func flatListRender(list []extraction.Value) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if obj, ok := item.ObjectValue(); ok {
			kvs := make([]string, 0, len(obj))
			for _, k := range sortedKeysMap(obj) {
				kvs = append(kvs, fmt.Sprintf("%s: %s", k, flatScalar(obj[k])))
			}
			parts = append(parts, strings.Join(kvs, ", "))
			continue
		}
		parts = append(parts, flatScalar(item))
	}
	return strings.Join(parts, "; ")
}

func flatScalar(v extraction.Value) string {
	if v.IsNull() {
		return "null"
	}
	if s, ok := v.StringValue(); ok {
		return s
	}
	if n, ok := v.NumberValue(); ok {
		return fmt.Sprintf("%v", n)
	}
	if b, ok := v.BoolValue(); ok {
		return fmt.Sprintf("%v", b)
	}
	return fmt.Sprintf("%v", v.Any())
}

// taggedDocument is the root element for the tagged-markup rendering.
type taggedDocument struct {
	XMLName  xml.Name       `xml:"Document"`
	Fields   []taggedField  `xml:"Fields>Field"`
	Metadata []taggedField  `xml:"Metadata>Field"`
}

type taggedField struct {
	XMLName xml.Name      `xml:"Field"`
	Name    string        `xml:"name,attr"`
	Null    string        `xml:"null,attr,omitempty"`
	Value   string        `xml:",chardata"`
	Items   []taggedItem  `xml:"Item"`
	Fields  []taggedField `xml:"Field"`
}

type taggedItem struct {
	Index int    `xml:"index,attr"`
	Value string `xml:",chardata"`
}

// TaggedMarkup renders result as pretty-printed XML: root <Document>
// containing <Fields> then <Metadata>; lists become
// <Field><Item index="i">...</Item></Field>; nulls are empty elements
// with null="true".
func TaggedMarkup(result extraction.FinalResult, metadata map[string]string) (string, error) {
	doc := taggedDocument{}
	for _, name := range sortedKeys(result.FieldValues) {
		doc.Fields = append(doc.Fields, renderTaggedField(name, result.FieldValues[name]))
	}
	names := make([]string, 0, len(metadata))
	for k := range metadata {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		doc.Metadata = append(doc.Metadata, taggedField{Name: k, Value: metadata[k]})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tagged markup: %w", err)
	}
	return xml.Header + string(out), nil
}

func renderTaggedField(name string, v extraction.Value) taggedField {
	if v.IsNull() {
		return taggedField{Name: name, Null: "true"}
	}
	if obj, ok := v.ObjectValue(); ok {
		f := taggedField{Name: name}
		for _, k := range sortedKeysMap(obj) {
			f.Fields = append(f.Fields, renderTaggedField(k, obj[k]))
		}
		return f
	}
	if list, ok := v.ListValue(); ok {
		f := taggedField{Name: name}
		for i, item := range list {
			f.Items = append(f.Items, taggedItem{Index: i, Value: flatScalar(item)})
		}
		return f
	}
	return taggedField{Name: name, Value: flatScalar(v)}
}

func sortedKeys(m map[string]extraction.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysMap(m map[string]extraction.Value) []string {
	return sortedKeys(m)
}
