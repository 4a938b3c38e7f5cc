package queue

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/specvital/worker/internal/adapter/queue/extract"
)

// Client is insert-only (no worker), used by the CLI entrypoint and any
// other caller that enqueues extraction jobs without running a worker
// loop itself.
type Client struct {
	client *river.Client[pgx.Tx]
}

func NewClient(ctx context.Context, pool *pgxpool.Pool) (*Client, error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
	}, nil
}

func (c *Client) Close() error {
	// river.Client doesn't need explicit close for insert-only mode
	return nil
}

// EnqueueExtraction inserts a durable extraction job, deduplicated on
// its job ID so a retried enqueue call is a no-op.
func (c *Client) EnqueueExtraction(ctx context.Context, args extract.ExtractArgs) error {
	_, err := c.client.Insert(ctx, args, nil)
	return err
}
