package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/specvital/worker/internal/domain/extraction"
)

// ResultStore persists a finished extraction Output, keyed by the job
// that produced it. It is a thin outer-layer concern: the pipeline core
// never imports it directly, only the queue worker that drives the
// pipeline and then records what it returned.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a ResultStore backed by pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Save upserts the Output for jobID, overwriting any prior result for
// the same job (retries re-run the whole pipeline, so the latest result
// wins).
func (s *ResultStore) Save(ctx context.Context, jobID string, output extraction.Output) error {
	structured, err := json.Marshal(output.Structured)
	if err != nil {
		return fmt.Errorf("marshal structured output: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_results (job_id, structured, flat_text, tagged_markup, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id) DO UPDATE SET
			structured = EXCLUDED.structured,
			flat_text = EXCLUDED.flat_text,
			tagged_markup = EXCLUDED.tagged_markup,
			elapsed_ms = EXCLUDED.elapsed_ms,
			updated_at = now()
	`, jobID, structured, output.FlatText, output.TaggedMarkup, output.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("save extraction result: %w", err)
	}
	return nil
}

// FindByJobID loads a previously saved Output, or (nil, nil) if none
// exists for jobID.
func (s *ResultStore) FindByJobID(ctx context.Context, jobID string) (*extraction.Output, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT structured, flat_text, tagged_markup, elapsed_ms
		FROM extraction_results
		WHERE job_id = $1
	`, jobID)

	var structuredRaw []byte
	var flatText, taggedMarkup string
	var elapsedMs int64
	if err := row.Scan(&structuredRaw, &flatText, &taggedMarkup, &elapsedMs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find extraction result: %w", err)
	}

	var structured map[string]any
	if err := json.Unmarshal(structuredRaw, &structured); err != nil {
		return nil, fmt.Errorf("unmarshal structured output: %w", err)
	}

	return &extraction.Output{
		Structured:   structured,
		FlatText:     flatText,
		TaggedMarkup: taggedMarkup,
	}, nil
}
