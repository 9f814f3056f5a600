package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Client enqueues maintenance tasks for the worker.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a Client against the given Redis address.
func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue submits one task by its type name.
func (c *Client) Enqueue(ctx context.Context, taskType string) error {
	task := asynq.NewTask(taskType, nil)
	_, err := c.client.EnqueueContext(ctx, task)
	return err
}
