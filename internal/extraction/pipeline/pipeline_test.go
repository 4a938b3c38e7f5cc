package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	segments []extraction.Segment
	err      error
}

func (f fakeSource) Load(ctx context.Context) ([]extraction.Segment, error) {
	return f.segments, f.err
}

type fakeCompletion struct {
	reply string
	err   error
}

func (f fakeCompletion) Generate(ctx context.Context, prompt string, opts extraction.CompletionOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeIdentifier struct {
	plan extraction.ExtractionPlan
}

func (f fakeIdentifier) Plan(query, llmHintedDomain string, minConfidence float64) extraction.ExtractionPlan {
	return f.plan
}

func testRegistry() *extraction.Registry {
	r := extraction.NewRegistry()
	r.Register(extraction.DomainDefinition{
		Name: "medical",
		SubDomains: []extraction.SubDomainDefinition{
			{
				Name: "patient",
				Fields: []extraction.FieldDefinition{
					{Name: "patient_name", Type: extraction.FieldTypeString},
					{Name: "admission_date", Type: extraction.FieldTypeDate},
				},
			},
		},
	})
	return r
}

func newTestPipeline(registry *extraction.Registry, completion extraction.Completion, plan extraction.ExtractionPlan) *Pipeline {
	return New(registry, completion, nil, preprocess.New(completion, registry), fakeIdentifier{plan: plan})
}

func TestExtract_HappyPathProducesStructuredOutput(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}, Fields: []string{"patient_name"}}
	completion := fakeCompletion{reply: `{"patient_name": "Jane Doe"}`}
	p := newTestPipeline(registry, completion, plan)

	req := Request{
		Source: fakeSource{segments: []extraction.Segment{{Text: "Patient Jane Doe was admitted."}}},
		Opts:   Options{OutputFormats: []extraction.OutputFormat{extraction.OutputStructured}},
	}

	out, err := p.Extract(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", out.Structured["patient_name"])
}

func TestExtract_EmptySubDomainsFailsWithSchemaEmpty(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: nil}
	p := newTestPipeline(registry, fakeCompletion{}, plan)

	req := Request{Source: fakeSource{segments: []extraction.Segment{{Text: "x"}}}}
	_, err := p.Extract(context.Background(), req, nil)
	assert.ErrorIs(t, err, extraction.ErrSchemaEmpty)
}

func TestExtract_UnknownDomainFailsWithSchemaEmpty(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "nonexistent", SubDomains: []string{"patient"}}
	p := newTestPipeline(registry, fakeCompletion{}, plan)

	req := Request{Source: fakeSource{segments: []extraction.Segment{{Text: "x"}}}}
	_, err := p.Extract(context.Background(), req, nil)
	assert.ErrorIs(t, err, extraction.ErrSchemaEmpty)
}

func TestExtract_DocumentLoadFailurePropagates(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}}
	p := newTestPipeline(registry, fakeCompletion{}, plan)

	req := Request{Source: fakeSource{err: errors.New("disk error")}}
	_, err := p.Extract(context.Background(), req, nil)
	require.Error(t, err)
}

func TestExtract_NilDocumentSourceFailsFast(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}}
	p := newTestPipeline(registry, fakeCompletion{}, plan)

	req := Request{Source: nil}
	_, err := p.Extract(context.Background(), req, nil)
	assert.ErrorIs(t, err, extraction.ErrInvalidInput)
}

func TestExtract_CancelledContextReturnsCancelled(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}}
	p := newTestPipeline(registry, fakeCompletion{reply: `{"patient_name":"x"}`}, plan)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := Request{Source: fakeSource{segments: []extraction.Segment{{Text: "some text here"}}}}
	_, err := p.Extract(ctx, req, nil)
	assert.ErrorIs(t, err, extraction.ErrCancelled)
}

func TestExtract_DeadlineIsHonoredViaExtractionDeadline(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}}
	p := newTestPipeline(registry, fakeCompletion{reply: `{"patient_name":"x"}`}, plan)

	req := Request{
		Source: fakeSource{segments: []extraction.Segment{{Text: "some text here"}}},
		Opts:   Options{ExtractionDeadline: time.Nanosecond},
	}
	time.Sleep(time.Millisecond)
	_, err := p.Extract(context.Background(), req, nil)
	assert.Error(t, err)
}

func TestExtract_DatesAreNormalizedInOutput(t *testing.T) {
	registry := testRegistry()
	plan := extraction.ExtractionPlan{Domain: "medical", SubDomains: []string{"patient"}, Fields: []string{"admission_date"}}
	completion := fakeCompletion{reply: `{"admission_date": "01/02/2023"}`}
	p := newTestPipeline(registry, completion, plan)

	req := Request{
		Source: fakeSource{segments: []extraction.Segment{{Text: "Admitted 01/02/2023."}}},
		Opts:   Options{OutputFormats: []extraction.OutputFormat{extraction.OutputStructured}},
	}
	out, err := p.Extract(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-02", out.Structured["admission_date"])
}
