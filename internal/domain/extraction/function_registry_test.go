package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionRegistry_SeededFunctions(t *testing.T) {
	fr := NewFunctionRegistry()

	for _, name := range []string{
		"format_date_iso", "format_date_us", "format_date_eu",
		"validate_date", "validate_email", "validate_phone",
		"normalize_whitespace", "capitalize_names", "extract_numbers",
	} {
		assert.True(t, fr.Has(name), "expected seeded function %q", name)
	}

	assert.False(t, fr.Has("does_not_exist"))
}

func TestFunctionRegistry_Call_UnknownFunction(t *testing.T) {
	fr := NewFunctionRegistry()
	_, err := fr.Call("nope")
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestFormatDateISO(t *testing.T) {
	cases := map[string]string{
		"2023-01-15":      "2023-01-15",
		"01/15/2023":      "2023-01-15",
		"15/01/2023":      "2023-01-15",
		"January 15, 2023": "2023-01-15",
		"Jan 15, 2023":    "2023-01-15",
		"not a date":      "not a date",
	}
	fr := NewFunctionRegistry()
	for in, want := range cases {
		got, err := fr.Call("format_date_iso", in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFormatDateUS_EU(t *testing.T) {
	fr := NewFunctionRegistry()

	us, err := fr.Call("format_date_us", "2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, "01/15/2023", us)

	eu, err := fr.Call("format_date_eu", "2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, "15/01/2023", eu)
}

func TestValidateDate(t *testing.T) {
	fr := NewFunctionRegistry()

	ok, err := fr.Call("validate_date", "2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	bad, err := fr.Call("validate_date", "not a date")
	require.NoError(t, err)
	assert.Equal(t, false, bad)
}

func TestValidateEmail(t *testing.T) {
	fr := NewFunctionRegistry()

	ok, _ := fr.Call("validate_email", "jane.doe@example.com")
	assert.Equal(t, true, ok)

	bad, _ := fr.Call("validate_email", "not-an-email")
	assert.Equal(t, false, bad)
}

func TestValidatePhone(t *testing.T) {
	fr := NewFunctionRegistry()

	ok, _ := fr.Call("validate_phone", "+1 (555) 123-4567")
	assert.Equal(t, true, ok)

	bad, _ := fr.Call("validate_phone", "123")
	assert.Equal(t, false, bad)
}

func TestNormalizeWhitespace(t *testing.T) {
	fr := NewFunctionRegistry()
	got, _ := fr.Call("normalize_whitespace", "  a   b\tc\n ")
	assert.Equal(t, "a b c", got)
}

func TestCapitalizeNames(t *testing.T) {
	cases := map[string]string{
		"john doe":          "John Doe",
		"mary-jane watson":  "Mary-Jane Watson",
		"mcdonald":          "McDonald",
		"macarthur general": "MacArthur General",
	}
	fr := NewFunctionRegistry()
	for in, want := range cases {
		got, err := fr.Call("capitalize_names", in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestExtractNumbers(t *testing.T) {
	fr := NewFunctionRegistry()
	got, err := fr.Call("extract_numbers", "Patient is 42 years old, temp 98.6")
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "98.6"}, got)
}
