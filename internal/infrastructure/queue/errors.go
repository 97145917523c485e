package queue

import "errors"

var (
	// ErrQueueNotRunning is returned when enqueueing to a stopped queue
	ErrQueueNotRunning = errors.New("job queue is not running")

	// ErrQueueFull is returned when the queue has reached its capacity
	ErrQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid queue configuration")
)
