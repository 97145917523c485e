package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/catalogsync/backend/internal/domain/sync"
	"github.com/catalogsync/backend/internal/domain/tenant"
)

func seedTenant(t *testing.T, db *gorm.DB, active bool) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant("acme",
		tenant.Connection{BaseURL: "https://source.example.com"},
		tenant.Connection{BaseURL: "https://sink.example.com"},
	)
	require.NoError(t, err)
	if !active {
		tn.Deactivate()
	}
	require.NoError(t, NewGormTenantRepository(db).Save(context.Background(), tn))
	return tn
}

func seedSchedule(t *testing.T, repo *GormSyncScheduleRepository, tenantID uuid.UUID, syncType sync.SyncType, priority int, nextRunAt *time.Time) *sync.SyncSchedule {
	t.Helper()
	s, err := sync.NewSyncSchedule(tenantID, syncType, sync.SyncDirectionSourceToSink, "0 * * * *", priority)
	require.NoError(t, err)
	s.NextRunAt = nextRunAt
	require.NoError(t, repo.Save(context.Background(), s))
	return s
}

func TestScheduleFindDueOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)
	ctx := context.Background()

	now := time.Now()
	earlier := now.Add(-2 * time.Hour)
	later := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lowLate := seedSchedule(t, repo, tn.ID, sync.SyncTypeStock, 1, &later)
	lowEarly := seedSchedule(t, repo, tn.ID, sync.SyncTypeConfig, 1, &earlier)
	high := seedSchedule(t, repo, tn.ID, sync.SyncTypeProductDelta, 9, &later)
	seedSchedule(t, repo, tn.ID, sync.SyncTypeFullProduct, 9, &future) // not due

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, high.ID, due[0].ID)
	assert.Equal(t, lowEarly.ID, due[1].ID)
	assert.Equal(t, lowLate.ID, due[2].ID)
}

func TestScheduleFindDueIncludesNeverRun(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)

	fresh := seedSchedule(t, repo, tn.ID, sync.SyncTypeConfig, 0, nil)

	due, err := repo.FindDue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)
}

func TestScheduleFindDueSkipsDisabledAndInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	activeTenant := seedTenant(t, db, true)
	inactiveTenant := seedTenant(t, db, false)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)

	disabled := seedSchedule(t, repo, activeTenant.ID, sync.SyncTypeStock, 0, &past)
	disabled.Disable()
	require.NoError(t, repo.Save(ctx, disabled))

	seedSchedule(t, repo, inactiveTenant.ID, sync.SyncTypeStock, 0, &past)

	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestScheduleFindDueHonorsLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)

	past := time.Now().Add(-time.Hour)
	for _, st := range []sync.SyncType{sync.SyncTypeConfig, sync.SyncTypeStock, sync.SyncTypeProductDelta} {
		seedSchedule(t, repo, tn.ID, st, 0, &past)
	}

	due, err := repo.FindDue(context.Background(), time.Now(), 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestScheduleFindByTenantTypeDirection(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)
	ctx := context.Background()

	created := seedSchedule(t, repo, tn.ID, sync.SyncTypeStock, 0, nil)

	found, err := repo.FindByTenantTypeDirection(ctx, tn.ID, sync.SyncTypeStock, sync.SyncDirectionSourceToSink)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByTenantTypeDirection(ctx, tn.ID, sync.SyncTypeConfig, sync.SyncDirectionSourceToSink)
	assert.ErrorIs(t, err, sync.ErrScheduleNotFound)
}

func TestScheduleSaveRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)
	ctx := context.Background()

	s := seedSchedule(t, repo, tn.ID, sync.SyncTypeFullProduct, 5, nil)
	ranAt := time.Now().Truncate(time.Second)
	s.MarkRun(ranAt, ranAt.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", found.CronExpression)
	assert.Equal(t, 5, found.Priority)
	require.NotNil(t, found.LastRunAt)
	assert.WithinDuration(t, ranAt, *found.LastRunAt, time.Second)
	require.NotNil(t, found.NextRunAt)
	assert.WithinDuration(t, ranAt.Add(time.Hour), *found.NextRunAt, time.Second)
}

func TestScheduleDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormSyncScheduleRepository(db)
	tn := seedTenant(t, db, true)
	ctx := context.Background()

	s := seedSchedule(t, repo, tn.ID, sync.SyncTypeConfig, 0, nil)
	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), sync.ErrScheduleNotFound)
}
