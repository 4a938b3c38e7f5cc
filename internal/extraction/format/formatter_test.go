package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() extraction.FinalResult {
	return extraction.FinalResult{
		FieldValues: map[string]extraction.Value{
			"patient_name": extraction.String("Jane Doe"),
			"allergies":    extraction.List([]extraction.Value{extraction.String("penicillin")}),
			"missing":      extraction.Null(),
			"address":      extraction.Object(map[string]extraction.Value{"city": extraction.String("Berlin")}),
		},
	}
}

func TestStructured_PreservesContentAndAddsMetadata(t *testing.T) {
	out := Structured(sampleResult(), map[string]string{"source": "doc-1"})
	assert.Equal(t, "Jane Doe", out["patient_name"])
	meta, ok := out["_metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "doc-1", meta["source"])
}

func TestFlatText_RendersNestedAndListFields(t *testing.T) {
	out := FlatText(sampleResult(), []string{"2023-01-01: admission"})
	assert.Contains(t, out, "patient_name: Jane Doe")
	assert.Contains(t, out, "address.city: Berlin")
	assert.Contains(t, out, "allergies: penicillin")
	assert.Contains(t, out, "timeline:")
}

func TestTaggedMarkup_RendersListsAndNulls(t *testing.T) {
	out, err := TaggedMarkup(sampleResult(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<Document>")
	assert.Contains(t, out, `null="true"`)
	assert.Contains(t, out, `name="allergies"`)
}

func TestTaggedMarkup_RendersNestedObjectAsChildFields(t *testing.T) {
	out, err := TaggedMarkup(sampleResult(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, `name="address"`)
	assert.Contains(t, out, `name="city"`)
	assert.Contains(t, out, "Berlin")
	assert.NotContains(t, out, "map[city:Berlin]")
}

func TestStructured_MatchesExpectedTreeExactly(t *testing.T) {
	out := Structured(sampleResult(), nil)

	want := map[string]any{
		"patient_name": "Jane Doe",
		"allergies":    []any{"penicillin"},
		"missing":      nil,
		"address":      map[string]any{"city": "Berlin"},
	}

	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("structured output mismatch (-want +got):\n%s", diff)
	}
}
