package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/tenant"

	appsync "github.com/catalogsync/backend/internal/application/sync"
)

type syncFixture struct {
	tenants *fakeTenantRepo
	jobs    *fakeJobRepo
	queue   *fakeQueue
	engine  *gin.Engine
}

func newSyncFixture(t *testing.T) (*syncFixture, *tenant.Tenant) {
	t.Helper()
	tenants := newFakeTenantRepo()
	jobs := newFakeJobRepo()
	queue := newFakeQueue()
	box := plainBox{}

	service := appsync.NewJobService(jobs, tenants, queue, box, zap.NewNop())
	h := NewSyncHandler(service)

	engine := gin.New()
	engine.POST("/sync/trigger", h.Trigger)
	engine.GET("/sync/jobs", h.ListJobs)
	engine.GET("/sync/jobs/:id", h.GetJob)

	sourceSealed, err := appsync.SealConnectionSecrets(box, appsync.ConnectionSecrets{Username: "erp", Password: "hunter2"})
	require.NoError(t, err)
	sinkSealed, err := appsync.SealConnectionSecrets(box, appsync.ConnectionSecrets{ClientID: "shop", ClientSecret: "s3cret"})
	require.NoError(t, err)

	tn, err := tenant.NewTenant("Acme",
		tenant.Connection{BaseURL: "https://erp.example.com", SealedCredentials: sourceSealed},
		tenant.Connection{BaseURL: "https://shop.example.com", SealedCredentials: sinkSealed},
	)
	require.NoError(t, err)
	require.NoError(t, tenants.Save(context.Background(), tn))

	return &syncFixture{tenants: tenants, jobs: jobs, queue: queue, engine: engine}, tn
}

func TestTriggerSyncEnqueuesJob(t *testing.T) {
	f, tn := newSyncFixture(t)

	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", TriggerSyncRequest{
		TenantID: tn.ID.String(),
		SyncType: "CONFIG",
		Priority: 7,
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	data := dataMap(t, w)
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, "CONFIG", data["sync_type"])

	require.Len(t, f.queue.payloads, 1)
	payload := f.queue.payloads[0]
	assert.Equal(t, tn.ID, payload.TenantID)
	assert.Equal(t, 7, payload.Priority)
	assert.Equal(t, "hunter2", payload.Source.Password)
}

func TestTriggerSyncRejectsSecondActiveJob(t *testing.T) {
	f, tn := newSyncFixture(t)

	req := TriggerSyncRequest{TenantID: tn.ID.String(), SyncType: "STOCK"}
	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", req)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = perform(t, f.engine, http.MethodPost, "/sync/trigger", req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_DUPLICATE_JOB")
}

func TestTriggerSyncInactiveTenant(t *testing.T) {
	f, tn := newSyncFixture(t)
	tn.Deactivate()
	require.NoError(t, f.tenants.Save(context.Background(), tn))

	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", TriggerSyncRequest{
		TenantID: tn.ID.String(),
		SyncType: "CONFIG",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TENANT_INACTIVE")
}

func TestTriggerSyncUnknownTenant(t *testing.T) {
	f, _ := newSyncFixture(t)

	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", TriggerSyncRequest{
		TenantID: uuid.New().String(),
		SyncType: "CONFIG",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerSyncRejectsUnknownSyncType(t *testing.T) {
	f, tn := newSyncFixture(t)

	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", map[string]any{
		"tenant_id": tn.ID.String(),
		"sync_type": "EVERYTHING",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJobAndList(t *testing.T) {
	f, tn := newSyncFixture(t)

	w := perform(t, f.engine, http.MethodPost, "/sync/trigger", TriggerSyncRequest{
		TenantID: tn.ID.String(),
		SyncType: "FULL_PRODUCT",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := dataMap(t, w)["id"].(string)

	w = perform(t, f.engine, http.MethodGet, "/sync/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jobID, dataMap(t, w)["id"])

	w = perform(t, f.engine, http.MethodGet, "/sync/jobs?tenant_id="+tn.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list, ok := decode(t, w).Data.([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)

	w = perform(t, f.engine, http.MethodGet, "/sync/jobs/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
