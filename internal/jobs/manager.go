package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager enqueues background tasks for the worker to pick up.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

var _ Manager = (*manager)(nil)

// NewManager builds a Manager backed by an asynq client on the shared redis
// connection.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

// Enqueue submits the task and logs where it landed.
func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, err
	}

	if m.log != nil {
		m.log.Debug("task enqueued",
			slog.String("type", task.Type()),
			slog.String("queue", info.Queue),
			slog.String("id", info.ID),
		)
	}
	return info, nil
}

// Close releases the underlying client connection.
func (m *manager) Close() error {
	return m.client.Close()
}
