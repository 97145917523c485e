// Package scheduler turns cron schedules into queued sync jobs: a ticker loop
// picks due schedules in priority order, skips tenants with a run already in
// flight, and hands payloads to the job queue. Companion loops purge old job
// rows and log queue health.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// JobDispatcher Interface
// ---------------------------------------------------------------------------

// JobDispatcher creates a persistent job for a schedule and enqueues its
// payload. Implemented by the application layer, which owns credential
// unsealing.
type JobDispatcher interface {
	Dispatch(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType, direction syncdomain.SyncDirection, scheduleID *uuid.UUID, priority int) (*syncdomain.SyncJob, error)
}

// StorePinger reports whether the backing store is reachable. Satisfied by
// persistence.Database.
type StorePinger interface {
	Ping() error
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds configuration for the sync scheduler
type Config struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// CheckInterval is how often the due-schedule cycle runs
	CheckInterval time.Duration
	// MaxDuePerCycle caps how many schedules one cycle dispatches
	MaxDuePerCycle int
	// CleanupInterval is how often old job rows are purged
	CleanupInterval time.Duration
	// CleanupAfterDays is the retention for completed jobs; failed jobs are
	// kept twice as long for diagnosis
	CleanupAfterDays int
	// HealthInterval is how often queue health is logged
	HealthInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		CheckInterval:    time.Minute,
		MaxDuePerCycle:   50,
		CleanupInterval:  time.Hour,
		CleanupAfterDays: 7,
		HealthInterval:   5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxDuePerCycle <= 0 {
		return ErrInvalidConfig
	}
	if c.CleanupInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.CleanupAfterDays <= 0 {
		return ErrInvalidConfig
	}
	if c.HealthInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler drives recurring syncs from persisted schedules.
type SyncScheduler struct {
	config     Config
	schedules  syncdomain.SyncScheduleRepository
	jobs       syncdomain.SyncJobRepository
	dispatcher JobDispatcher
	queue      syncdomain.Queue
	store      StorePinger
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(
	config Config,
	schedules syncdomain.SyncScheduleRepository,
	jobs syncdomain.SyncJobRepository,
	dispatcher JobDispatcher,
	queue syncdomain.Queue,
	store StorePinger,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:     config,
		schedules:  schedules,
		jobs:       jobs,
		dispatcher: dispatcher,
		queue:      queue,
		store:      store,
		logger:     logger,
	}, nil
}

// Start launches the scheduling, cleanup and health loops
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.runLoop(ctx)
	go s.cleanupLoop(ctx)
	go s.healthLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Int("max_due_per_cycle", s.config.MaxDuePerCycle),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop runs the due-schedule cycle on a ticker
func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle dispatches every due schedule once. Exported so a manual kick (or
// a test) can run a cycle without waiting for the ticker.
func (s *SyncScheduler) RunCycle(ctx context.Context) {
	now := time.Now()

	due, err := s.schedules.FindDue(ctx, now, s.config.MaxDuePerCycle)
	if err != nil {
		s.logger.Error("Failed to load due schedules", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug("Processing due schedules", zap.Int("count", len(due)))

	for i := range due {
		schedule := &due[i]
		if err := s.processSchedule(ctx, schedule, now); err != nil {
			s.logger.Error("Failed to process schedule",
				zap.String("schedule_id", schedule.ID.String()),
				zap.String("tenant_id", schedule.TenantID.String()),
				zap.String("sync_type", string(schedule.SyncType)),
				zap.Error(err),
			)
		}
	}
}

// processSchedule dispatches one due schedule and advances its next run.
// A tenant with the same sync type already pending or processing is skipped
// for this occurrence; the schedule moves on to the next one.
func (s *SyncScheduler) processSchedule(ctx context.Context, schedule *syncdomain.SyncSchedule, now time.Time) error {
	next := NextRun(schedule.CronExpression, now)

	active, err := s.jobs.ExistsActive(ctx, schedule.TenantID, schedule.SyncType)
	if err != nil {
		return err
	}
	if active {
		s.logger.Info("Skipping schedule, sync already in flight",
			zap.String("schedule_id", schedule.ID.String()),
			zap.String("tenant_id", schedule.TenantID.String()),
			zap.String("sync_type", string(schedule.SyncType)),
			zap.Time("next_run_at", next),
		)
		schedule.AdvanceNextRun(next)
		return s.schedules.Save(ctx, schedule)
	}

	job, err := s.dispatcher.Dispatch(ctx, schedule.TenantID, schedule.SyncType, schedule.Direction, &schedule.ID, schedule.Priority)
	if err != nil {
		if errors.Is(err, syncdomain.ErrDuplicateJob) {
			// Another instance beat us to it inside the dedup window.
			schedule.AdvanceNextRun(next)
			return s.schedules.Save(ctx, schedule)
		}
		return err
	}

	s.logger.Info("Scheduled sync dispatched",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", schedule.TenantID.String()),
		zap.String("sync_type", string(schedule.SyncType)),
		zap.Int("priority", schedule.Priority),
		zap.Time("next_run_at", next),
	)

	schedule.MarkRun(now, next)
	return s.schedules.Save(ctx, schedule)
}

// cleanupLoop purges terminal job rows past retention
func (s *SyncScheduler) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupOnce(ctx)
		}
	}
}

// CleanupOnce deletes completed jobs past retention and failed jobs past
// twice the retention.
func (s *SyncScheduler) CleanupOnce(ctx context.Context) {
	retention := time.Duration(s.config.CleanupAfterDays) * 24 * time.Hour
	now := time.Now()

	completed, err := s.jobs.DeleteTerminalBefore(ctx, syncdomain.JobStatusCompleted, now.Add(-retention))
	if err != nil {
		s.logger.Error("Failed to purge completed jobs", zap.Error(err))
	}

	failed, err := s.jobs.DeleteTerminalBefore(ctx, syncdomain.JobStatusFailed, now.Add(-2*retention))
	if err != nil {
		s.logger.Error("Failed to purge failed jobs", zap.Error(err))
	}

	if completed > 0 || failed > 0 {
		s.logger.Info("Purged old sync jobs",
			zap.Int64("completed_removed", completed),
			zap.Int64("failed_removed", failed),
		)
	}
}

// healthLoop probes the store and logs queue health periodically
func (s *SyncScheduler) healthLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckHealth()
		}
	}
}

// CheckHealth pings the store and logs queue stats. A failed ping is an
// error entry; the scheduler keeps running and retries next interval.
func (s *SyncScheduler) CheckHealth() {
	stats := s.queue.Stats()
	fields := []zap.Field{
		zap.Int("depth", stats.Depth),
		zap.Int("in_flight", stats.InFlight),
		zap.Int("workers", stats.Workers),
		zap.Bool("running", stats.IsRunning),
	}

	if err := s.store.Ping(); err != nil {
		s.logger.Error("Health check failed, store unreachable", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("Health check", fields...)
}

// IsRunning reports whether the scheduler loops are active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
