package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompletion struct {
	reply string
	err   error
}

func (s stubCompletion) Generate(ctx context.Context, prompt string, opts extraction.CompletionOptions) (string, error) {
	return s.reply, s.err
}

func TestNormalizeDate_KnownLayouts(t *testing.T) {
	n := New(nil)
	ctx := context.Background()

	assert.Equal(t, "2023-01-15", n.NormalizeDate(ctx, "2023-01-15"))
	assert.Equal(t, "2023-01-15", n.NormalizeDate(ctx, "January 15, 2023"))
	assert.Equal(t, "2023-01-15", n.NormalizeDate(ctx, "01/15/2023"))
	assert.Equal(t, "", n.NormalizeDate(ctx, ""))
}

func TestNormalizeDate_FallsBackToLLM(t *testing.T) {
	n := New(stubCompletion{reply: "2023-03-04"})
	got := n.NormalizeDate(context.Background(), "the fourth of March twenty twenty-three")
	assert.Equal(t, "2023-03-04", got)
}

func TestNormalizeDate_LLMFailureYieldsEmpty(t *testing.T) {
	n := New(stubCompletion{err: errors.New("boom")})
	got := n.NormalizeDate(context.Background(), "garbage input")
	assert.Equal(t, "", got)
}

func TestBuildTimeline_SortsAscendingUnparseableLast(t *testing.T) {
	n := New(nil)
	events := []Event{
		{Date: "2023-06-01"},
		{Date: "not a date"},
		{Date: "2023-01-01"},
	}

	out := n.BuildTimeline(context.Background(), events)
	require.Len(t, out, 3)
	assert.Equal(t, "2023-01-01", out[0].NormalizedDate)
	assert.Equal(t, "2023-06-01", out[1].NormalizedDate)
	assert.Equal(t, "", out[2].NormalizedDate)
}

func TestNormalizeFields_MatchesByTypeOrSuffix(t *testing.T) {
	n := New(nil)
	fields := map[string]extraction.Value{
		"admission_date": extraction.String("01/15/2023"),
		"name":           extraction.String("Jane"),
	}

	out := n.NormalizeFields(context.Background(), fields, nil)
	s, ok := out["admission_date"].StringValue()
	require.True(t, ok)
	assert.Equal(t, "2023-01-15", s)

	name, _ := out["name"].StringValue()
	assert.Equal(t, "Jane", name)
}
