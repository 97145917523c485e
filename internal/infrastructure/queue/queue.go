// Package queue provides the in-process priority job queue: at-least-once
// delivery through a bounded worker pool, retry with exponential backoff, and
// idempotent enqueue keyed by job id.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds configuration for the priority job queue
type Config struct {
	// Workers is the number of concurrent delivery workers
	Workers int
	// Capacity is the soft limit on queued payloads
	Capacity int
	// MaxRetries is the number of redeliveries after a retryable failure
	MaxRetries int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff
	MaxRetryDelay time.Duration
	// DedupTTL is how long an accepted job id blocks re-enqueueing
	DedupTTL time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		Capacity:      256,
		MaxRetries:    3,
		RetryDelay:    time.Minute,
		MaxRetryDelay: 30 * time.Minute,
		DedupTTL:      6 * time.Hour,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.Capacity <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig
	}
	if c.RetryDelay <= 0 || c.MaxRetryDelay < c.RetryDelay {
		return ErrInvalidConfig
	}
	if c.DedupTTL <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// PriorityJobQueue
// ---------------------------------------------------------------------------

// PriorityJobQueue implements sync.Queue with an in-process heap. Higher
// priority payloads are delivered first; equal priorities stay FIFO.
type PriorityJobQueue struct {
	config Config
	dedup  IdempotencyStore
	logger *zap.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	items     itemHeap
	seq       uint64
	inFlight  int
	isRunning bool

	handler syncdomain.JobHandler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPriorityJobQueue creates a new queue. The idempotency store is injected
// so single-instance deployments run in memory and multi-instance ones share
// state through Redis.
func NewPriorityJobQueue(config Config, dedup IdempotencyStore, logger *zap.Logger) (*PriorityJobQueue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	q := &PriorityJobQueue{
		config: config,
		dedup:  dedup,
		logger: logger,
		items:  make(itemHeap, 0, config.Capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q, nil
}

// Enqueue adds a payload with its priority. A job id already accepted within
// the dedup window is rejected with sync.ErrDuplicateJob.
func (q *PriorityJobQueue) Enqueue(ctx context.Context, payload *syncdomain.JobPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return ErrQueueNotRunning
	}
	if len(q.items) >= q.config.Capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.mu.Unlock()

	// The dedup mark happens outside the lock; the store may be remote.
	accepted, err := q.dedup.MarkAccepted(ctx, payload.JobID.String(), q.config.DedupTTL)
	if err != nil {
		return err
	}
	if !accepted {
		return syncdomain.ErrDuplicateJob
	}

	q.mu.Lock()
	q.seq++
	heap.Push(&q.items, &queueItem{
		payload:  payload,
		priority: payload.Priority,
		seq:      q.seq,
	})
	depth := len(q.items)
	q.mu.Unlock()
	q.cond.Signal()

	q.logger.Debug("Job enqueued",
		zap.String("job_id", payload.JobID.String()),
		zap.String("tenant_id", payload.TenantID.String()),
		zap.String("sync_type", string(payload.SyncType)),
		zap.Int("priority", payload.Priority),
		zap.Int("depth", depth),
	)
	return nil
}

// Start launches the worker pool delivering to handler.
func (q *PriorityJobQueue) Start(ctx context.Context, handler syncdomain.JobHandler) error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = true
	q.handler = handler
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	// Wake blocked workers when the context dies.
	go func() {
		<-ctx.Done()
		q.cond.Broadcast()
	}()

	q.logger.Info("Job queue started",
		zap.Int("workers", q.config.Workers),
		zap.Int("capacity", q.config.Capacity),
	)
	return nil
}

// Stop drains workers, waiting up to the context deadline. Queued but
// undelivered payloads are dropped; their job rows stay pending and the next
// due cycle re-triggers them.
func (q *PriorityJobQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Job queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Job queue stop timed out")
		return ctx.Err()
	}
}

// Stats reports queue depth and worker state for health checks.
func (q *PriorityJobQueue) Stats() syncdomain.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return syncdomain.QueueStats{
		Depth:     len(q.items),
		InFlight:  q.inFlight,
		Workers:   q.config.Workers,
		IsRunning: q.isRunning,
	}
}

// worker delivers items until the queue stops
func (q *PriorityJobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	q.logger.Debug("Queue worker started", zap.Int("worker_id", workerID))

	for {
		item := q.next(ctx)
		if item == nil {
			q.logger.Debug("Queue worker stopping", zap.Int("worker_id", workerID))
			return
		}
		q.deliver(ctx, item, workerID)

		q.mu.Lock()
		q.inFlight--
		q.mu.Unlock()
	}
}

// next blocks until an item is available or the queue stops
func (q *PriorityJobQueue) next(ctx context.Context) *queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if ctx.Err() != nil || !q.isRunning {
			return nil
		}
		if q.items.Len() > 0 {
			item := heap.Pop(&q.items).(*queueItem)
			q.inFlight++
			return item
		}
		q.cond.Wait()
	}
}

// deliver runs the handler once and schedules a redelivery on retryable
// failure. Validation failures never retry: the input will stay wrong.
func (q *PriorityJobQueue) deliver(ctx context.Context, item *queueItem, workerID int) {
	payload := item.payload

	err := q.handler.Handle(ctx, payload)
	if err == nil {
		q.logger.Debug("Job delivered",
			zap.Int("worker_id", workerID),
			zap.String("job_id", payload.JobID.String()),
			zap.Int("attempts", item.attempts+1),
		)
		return
	}

	if syncdomain.IsValidation(err) {
		q.logger.Warn("Job rejected, not retrying",
			zap.Int("worker_id", workerID),
			zap.String("job_id", payload.JobID.String()),
			zap.String("tenant_id", payload.TenantID.String()),
			zap.Error(err),
		)
		return
	}

	if item.attempts >= q.config.MaxRetries {
		q.logger.Error("Job failed, retries exhausted",
			zap.Int("worker_id", workerID),
			zap.String("job_id", payload.JobID.String()),
			zap.String("tenant_id", payload.TenantID.String()),
			zap.Int("attempts", item.attempts+1),
			zap.Error(err),
		)
		return
	}

	item.attempts++
	delay := q.retryDelay(item.attempts)
	q.logger.Warn("Job failed, scheduling retry",
		zap.Int("worker_id", workerID),
		zap.String("job_id", payload.JobID.String()),
		zap.Int("retry", item.attempts),
		zap.Int("max_retries", q.config.MaxRetries),
		zap.Duration("delay", delay),
		zap.Error(err),
	)

	time.AfterFunc(delay, func() { q.requeue(item) })
}

// retryDelay computes the exponential backoff for the given attempt
func (q *PriorityJobQueue) retryDelay(attempt int) time.Duration {
	delay := q.config.RetryDelay * time.Duration(1<<(attempt-1))
	if delay > q.config.MaxRetryDelay {
		delay = q.config.MaxRetryDelay
	}
	return delay
}

// requeue pushes a retried item back, unless the queue stopped meanwhile
func (q *PriorityJobQueue) requeue(item *queueItem) {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		q.logger.Warn("Dropping retry, queue stopped",
			zap.String("job_id", item.payload.JobID.String()),
		)
		return
	}
	q.seq++
	item.seq = q.seq
	heap.Push(&q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// Ensure PriorityJobQueue implements sync.Queue
var _ syncdomain.Queue = (*PriorityJobQueue)(nil)
