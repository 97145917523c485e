package sync

// SyncType identifies what a sync run covers.
type SyncType string

const (
	// SyncTypeConfig syncs categories, attributes, manufacturers, units and
	// caches sales prices.
	SyncTypeConfig SyncType = "CONFIG"
	// SyncTypeStock syncs the full stock snapshot.
	SyncTypeStock SyncType = "STOCK"
	// SyncTypeProductDelta syncs variations changed since the last watermark.
	SyncTypeProductDelta SyncType = "PRODUCT_DELTA"
	// SyncTypeFullProduct syncs the entire product catalog.
	SyncTypeFullProduct SyncType = "FULL_PRODUCT"
)

// IsValid returns true if the sync type is a known value.
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeConfig, SyncTypeStock, SyncTypeProductDelta, SyncTypeFullProduct:
		return true
	}
	return false
}

// IsProduct returns true for the two product sync flavors.
func (t SyncType) IsProduct() bool {
	return t == SyncTypeProductDelta || t == SyncTypeFullProduct
}

// SyncDirection identifies which side is authoritative for a run.
// The source system is always authoritative here; the single value exists so
// the (tenant, type, direction) schedule uniqueness invariant is explicit in
// the model rather than implied.
type SyncDirection string

// SyncDirectionSourceToSink pushes source data into the sink.
const SyncDirectionSourceToSink SyncDirection = "SOURCE_TO_SINK"

// IsValid returns true if the direction is a known value.
func (d SyncDirection) IsValid() bool {
	return d == SyncDirectionSourceToSink
}

// JobStatus represents the lifecycle state of a sync job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal returns true once a job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
