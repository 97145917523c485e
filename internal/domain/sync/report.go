package sync

import "fmt"

// ItemFailure records one failed entity inside a run, keeping the entity kind
// and id for operator visibility.
type ItemFailure struct {
	EntityKind string
	EntityID   string
	Message    string
}

// Error implements error.
func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s %s: %s", f.EntityKind, f.EntityID, f.Message)
}

// RunReport accumulates per-item bookkeeping across a processor run. A run is
// fully successful only with zero failed items; partial failures never abort
// the run by themselves.
type RunReport struct {
	SyncType       SyncType
	ItemsProcessed int
	ItemsFailed    int
	Failures       []ItemFailure
}

// NewRunReport creates an empty report for the sync type.
func NewRunReport(syncType SyncType) *RunReport {
	return &RunReport{SyncType: syncType}
}

// AddSuccess counts a successfully processed item.
func (r *RunReport) AddSuccess() {
	r.ItemsProcessed++
}

// AddFailure counts a failed item and retains its identity.
func (r *RunReport) AddFailure(entityKind, entityID, message string) {
	r.ItemsProcessed++
	r.ItemsFailed++
	r.Failures = append(r.Failures, ItemFailure{
		EntityKind: entityKind,
		EntityID:   entityID,
		Message:    message,
	})
}

// FullySuccessful reports whether no item failed.
func (r *RunReport) FullySuccessful() bool {
	return r.ItemsFailed == 0
}
