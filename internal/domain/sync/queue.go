package sync

import "context"

// JobHandler executes a sync job payload to completion. A returned error makes
// the delivery count against the queue's retry budget; partial item failures
// are reported through the job row and do not error here unless the run as a
// whole should be retried.
type JobHandler interface {
	Handle(ctx context.Context, payload *JobPayload) error
}

// JobHandlerFunc adapts a function to the JobHandler interface.
type JobHandlerFunc func(ctx context.Context, payload *JobPayload) error

// Handle calls f.
func (f JobHandlerFunc) Handle(ctx context.Context, payload *JobPayload) error {
	return f(ctx, payload)
}

// QueueStats is a point-in-time snapshot of queue health.
type QueueStats struct {
	Depth     int
	InFlight  int
	Workers   int
	IsRunning bool
}

// Queue is the job queue contract: priority ordering, at-least-once delivery,
// retry with backoff, and idempotent enqueue keyed by the job id.
type Queue interface {
	// Enqueue adds a payload with the given priority. Re-enqueueing a job id
	// already accepted within the dedup window is a no-op returning
	// ErrDuplicateJob.
	Enqueue(ctx context.Context, payload *JobPayload) error

	// Start launches the worker pool delivering to handler.
	Start(ctx context.Context, handler JobHandler) error

	// Stop drains workers, waiting up to the context deadline.
	Stop(ctx context.Context) error

	// Stats reports queue depth and worker state for health checks.
	Stats() QueueStats
}
