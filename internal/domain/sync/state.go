package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncState is the per (tenant, syncType) watermark. LastSyncAt moves on every
// completed run; LastSuccessfulSyncAt only when the run had zero failed items.
// The PRODUCT_DELTA watermark drives the delta cutoff, the CONFIG watermark is
// the precondition for product syncs.
type SyncState struct {
	TenantID             uuid.UUID
	SyncType             SyncType
	LastSyncAt           *time.Time
	LastSuccessfulSyncAt *time.Time
	UpdatedAt            time.Time
}

// MarkRun records a completed run. fullySuccessful advances the success
// watermark as well.
func (s *SyncState) MarkRun(at time.Time, fullySuccessful bool) {
	s.LastSyncAt = &at
	if fullySuccessful {
		s.LastSuccessfulSyncAt = &at
	}
	s.UpdatedAt = time.Now()
}

// SyncStateRepository persists watermarks.
type SyncStateRepository interface {
	// Get returns the state for the pair, or ErrSyncStateNotFound.
	Get(ctx context.Context, tenantID uuid.UUID, syncType SyncType) (*SyncState, error)

	// Save upserts the state keyed by (tenant, syncType).
	Save(ctx context.Context, state *SyncState) error

	// Delete removes the state, resetting the watermark.
	Delete(ctx context.Context, tenantID uuid.UUID, syncType SyncType) error
}
