package sync

import (
	"github.com/google/uuid"
)

// Credentials is a decrypted connection credential set as carried inside a job
// payload. It never touches the database in this form; tenants persist sealed
// bytes and the scheduler unseals them at enqueue time.
type Credentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// JobPayload is the queue boundary: everything a worker needs to run a sync
// without further tenant lookups.
type JobPayload struct {
	JobID       uuid.UUID
	TenantID    uuid.UUID
	SyncType    SyncType
	Direction   SyncDirection
	ScheduleID  *uuid.UUID
	Priority    int
	Source      Credentials
	Sink        Credentials
}

// Validate checks the payload before enqueueing.
func (p *JobPayload) Validate() error {
	if p.JobID == uuid.Nil {
		return ErrInvalidJobID
	}
	if p.TenantID == uuid.Nil {
		return ErrInvalidTenantID
	}
	if !p.SyncType.IsValid() {
		return ErrInvalidSyncType
	}
	if !p.Direction.IsValid() {
		return ErrInvalidDirection
	}
	if p.Source.BaseURL == "" || p.Sink.BaseURL == "" {
		return ErrMissingCredentials
	}
	return nil
}
