package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTenantID is returned for a nil tenant id.
	ErrInvalidTenantID = errors.New("sync: invalid tenant ID")

	// ErrInvalidJobID is returned for a nil job id.
	ErrInvalidJobID = errors.New("sync: invalid job ID")

	// ErrInvalidSyncType is returned for an unknown sync type.
	ErrInvalidSyncType = errors.New("sync: invalid sync type")

	// ErrInvalidDirection is returned for an unknown sync direction.
	ErrInvalidDirection = errors.New("sync: invalid sync direction")

	// ErrInvalidCronExpression is returned for an empty cron expression.
	ErrInvalidCronExpression = errors.New("sync: invalid cron expression")

	// ErrMissingCredentials is returned when a payload lacks connection data.
	ErrMissingCredentials = errors.New("sync: missing connection credentials")

	// ErrJobNotFound is returned when a job does not exist.
	ErrJobNotFound = errors.New("sync: job not found")

	// ErrScheduleNotFound is returned when a schedule does not exist.
	ErrScheduleNotFound = errors.New("sync: schedule not found")

	// ErrScheduleExists is returned when the (tenant, type, direction)
	// uniqueness invariant would be violated.
	ErrScheduleExists = errors.New("sync: schedule already exists for tenant, type and direction")

	// ErrSyncStateNotFound is returned when no watermark exists yet.
	ErrSyncStateNotFound = errors.New("sync: state not found")

	// ErrDuplicateJob is returned when the queue has already accepted the
	// same job id within its dedup window.
	ErrDuplicateJob = errors.New("sync: duplicate job")

	// ErrConfigSyncRequired is returned when a product sync runs for a tenant
	// that has no CONFIG watermark yet.
	ErrConfigSyncRequired = errors.New("sync: config sync must complete before product sync")
)

// ---------------------------------------------------------------------------
// Classified Errors
// ---------------------------------------------------------------------------

// ValidationError marks a job failure that must not be retried: the input or
// tenant state is wrong and will stay wrong.
type ValidationError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Reason, e.Err)
	}
	return "validation: " + e.Reason
}

// Unwrap returns the wrapped cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps a cause as a non-retryable validation failure.
func NewValidationError(reason string, err error) *ValidationError {
	return &ValidationError{Reason: reason, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AuthError marks an authentication failure that survived the adapter's single
// refresh-and-retry.
type AuthError struct {
	System string
	Err    error
}

// Error implements error.
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.System, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *AuthError) Unwrap() error { return e.Err }

// TransientError marks a network-level failure that exhausted the adapter's
// retry budget. It is eligible for the queue's own retry policy.
type TransientError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *TransientError) Unwrap() error { return e.Err }

// CircularReferenceError marks a cycle in the source category hierarchy. Only
// the affected chain is aborted; the rest of the run continues.
type CircularReferenceError struct {
	EntityKind string
	EntityID   string
}

// Error implements error.
func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference in %s hierarchy at %s", e.EntityKind, e.EntityID)
}
