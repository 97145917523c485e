package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/tenant"
	"github.com/catalogsync/backend/internal/infrastructure/logger"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// SourceClientFactory builds a source adapter from a payload's credentials.
// One client per job keeps token state scoped to that run.
type SourceClientFactory func(creds syncdomain.Credentials) (catalog.SourceClient, error)

// SinkClientFactory builds a sink adapter from a payload's credentials.
type SinkClientFactory func(creds syncdomain.Credentials) (catalog.SinkClient, error)

// JobRunner executes queued job payloads: it marks the job row, builds the
// per-job adapters and transformer, routes to the right processor and stamps
// the watermark. It is the queue's JobHandler.
type JobRunner struct {
	jobs    syncdomain.SyncJobRepository
	states  syncdomain.SyncStateRepository
	tenants tenant.Repository

	configProcessor  *ConfigSyncProcessor
	productProcessor *ProductSyncProcessor
	stockProcessor   *StockSyncProcessor

	newSource SourceClientFactory
	newSink   SinkClientFactory

	defaultCurrency string
	defaultTaxRate  decimal.Decimal
	logger          *zap.Logger
}

// NewJobRunner creates a new job runner
func NewJobRunner(
	jobs syncdomain.SyncJobRepository,
	states syncdomain.SyncStateRepository,
	tenants tenant.Repository,
	configProcessor *ConfigSyncProcessor,
	productProcessor *ProductSyncProcessor,
	stockProcessor *StockSyncProcessor,
	newSource SourceClientFactory,
	newSink SinkClientFactory,
	defaultCurrency string,
	defaultTaxRate decimal.Decimal,
	log *zap.Logger,
) *JobRunner {
	return &JobRunner{
		jobs:             jobs,
		states:           states,
		tenants:          tenants,
		configProcessor:  configProcessor,
		productProcessor: productProcessor,
		stockProcessor:   stockProcessor,
		newSource:        newSource,
		newSink:          newSink,
		defaultCurrency:  defaultCurrency,
		defaultTaxRate:   defaultTaxRate,
		logger:           log,
	}
}

var _ syncdomain.JobHandler = (*JobRunner)(nil)

// Handle runs one job payload to completion. The returned error feeds the
// queue's retry policy; validation failures are absorbed into the job row
// and still returned so the queue can classify them as non-retryable.
func (r *JobRunner) Handle(ctx context.Context, payload *syncdomain.JobPayload) error {
	ctx, log := logger.WithJobID(ctx, r.logger, payload.JobID.String())
	log = log.With(
		zap.String("tenant_id", payload.TenantID.String()),
		zap.String("sync_type", string(payload.SyncType)),
	)

	job, err := r.jobs.FindByID(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", payload.JobID, err)
	}

	job.Start()
	if err := r.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	started := time.Now()
	report, runErr := r.run(ctx, payload)

	if runErr != nil {
		job.Fail(runErr.Error())
		if saveErr := r.jobs.Save(ctx, job); saveErr != nil {
			log.Error("Failed to persist job failure", zap.Error(saveErr))
		}
		log.Error("Sync job failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(runErr),
		)
		return runErr
	}

	// The watermark moves on every completed run; the success watermark only
	// when no item failed.
	r.stampWatermark(ctx, payload, report, log)

	if report.FullySuccessful() {
		job.Complete()
	} else {
		// Completed with partial failures: the run is over, but the job row
		// records what went wrong.
		job.Complete()
		job.Error = fmt.Sprintf("%d of %d items failed", report.ItemsFailed, report.ItemsProcessed)
		for i, f := range report.Failures {
			if i == 3 {
				job.Error += fmt.Sprintf("; and %d more", len(report.Failures)-i)
				break
			}
			job.Error += "; " + f.Error()
		}
	}
	if err := r.jobs.Save(ctx, job); err != nil {
		log.Error("Failed to persist job completion", zap.Error(err))
	}

	log.Info("Sync job finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("items_processed", report.ItemsProcessed),
		zap.Int("items_failed", report.ItemsFailed),
	)
	return nil
}

// run routes the payload to its processor.
func (r *JobRunner) run(ctx context.Context, payload *syncdomain.JobPayload) (*syncdomain.RunReport, error) {
	t, err := r.tenants.FindByID(ctx, payload.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return nil, syncdomain.NewValidationError("tenant does not exist", err)
		}
		return nil, err
	}
	if !t.Active {
		return nil, syncdomain.NewValidationError("tenant is inactive", tenant.ErrTenantInactive)
	}

	source, err := r.newSource(payload.Source)
	if err != nil {
		return nil, fmt.Errorf("build source client: %w", err)
	}
	sink, err := r.newSink(payload.Sink)
	if err != nil {
		return nil, fmt.Errorf("build sink client: %w", err)
	}

	transformer := r.transformerFor(t)

	switch payload.SyncType {
	case syncdomain.SyncTypeConfig:
		return r.configProcessor.Run(ctx, t.ID, source, sink, transformer)
	case syncdomain.SyncTypeProductDelta, syncdomain.SyncTypeFullProduct:
		return r.productProcessor.Run(ctx, t.ID, payload.SyncType, source, sink, transformer)
	case syncdomain.SyncTypeStock:
		return r.stockProcessor.Run(ctx, t.ID, source, sink)
	default:
		return nil, syncdomain.NewValidationError("unhandled sync type "+string(payload.SyncType), syncdomain.ErrInvalidSyncType)
	}
}

// transformerFor builds the tenant's transformer, falling back to the
// service-level tax rate when the tenant has none configured.
func (r *JobRunner) transformerFor(t *tenant.Tenant) *Transformer {
	taxRate := t.DefaultTaxRate
	if taxRate.IsZero() {
		taxRate = r.defaultTaxRate
	}
	return NewTransformer(t.LanguageChain(), taxRate, r.defaultCurrency)
}

// stampWatermark upserts the per (tenant, syncType) watermark after a
// completed run, even one with partial item failures.
func (r *JobRunner) stampWatermark(ctx context.Context, payload *syncdomain.JobPayload, report *syncdomain.RunReport, log *zap.Logger) {
	state, err := r.states.Get(ctx, payload.TenantID, payload.SyncType)
	if err != nil {
		if !errors.Is(err, syncdomain.ErrSyncStateNotFound) {
			log.Error("Failed to load sync state", zap.Error(err))
			return
		}
		state = &syncdomain.SyncState{
			TenantID: payload.TenantID,
			SyncType: payload.SyncType,
		}
	}

	state.MarkRun(time.Now(), report.FullySuccessful())
	if err := r.states.Save(ctx, state); err != nil {
		log.Error("Failed to stamp watermark", zap.Error(err))
	}
}
