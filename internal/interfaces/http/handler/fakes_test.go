package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/domain/tenant"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// perform runs one request against the engine, JSON-encoding body when set.
func perform(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response envelope.
func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// dataMap returns the response data as a generic map.
func dataMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	resp := decode(t, w)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object: %v", resp.Data)
	return m
}

// In-memory doubles for the repositories the handlers reach through their
// services. They mirror the persistence layer's contracts closely enough for
// end-to-end handler tests over httptest.

type fakeScheduleRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]syncdomain.SyncSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{rows: make(map[uuid.UUID]syncdomain.SyncSchedule)}
}

func (r *fakeScheduleRepo) Save(_ context.Context, schedule *syncdomain.SyncSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[schedule.ID] = *schedule
	return nil
}

func (r *fakeScheduleRepo) FindByID(_ context.Context, id uuid.UUID) (*syncdomain.SyncSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, syncdomain.ErrScheduleNotFound
	}
	return &row, nil
}

func (r *fakeScheduleRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) ([]syncdomain.SyncSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.SyncSchedule
	for _, row := range r.rows {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeScheduleRepo) FindByTenantTypeDirection(_ context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType, direction syncdomain.SyncDirection) (*syncdomain.SyncSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TenantID == tenantID && row.SyncType == syncType && row.Direction == direction {
			return &row, nil
		}
	}
	return nil, syncdomain.ErrScheduleNotFound
}

func (r *fakeScheduleRepo) FindDue(_ context.Context, _ time.Time, _ int) ([]syncdomain.SyncSchedule, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return syncdomain.ErrScheduleNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeTenantRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]tenant.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{rows: make(map[uuid.UUID]tenant.Tenant)}
}

func (r *fakeTenantRepo) Save(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = *t
	return nil
}

func (r *fakeTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return &row, nil
}

func (r *fakeTenantRepo) FindActive(_ context.Context) ([]tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tenant.Tenant
	for _, row := range r.rows {
		if row.Active {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeJobRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]syncdomain.SyncJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{rows: make(map[uuid.UUID]syncdomain.SyncJob)}
}

func (r *fakeJobRepo) Save(_ context.Context, job *syncdomain.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*syncdomain.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, syncdomain.ErrJobNotFound
	}
	return &row, nil
}

func (r *fakeJobRepo) FindByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]syncdomain.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.SyncJob
	for _, row := range r.rows {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeJobRepo) ExistsActive(_ context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TenantID == tenantID && row.SyncType == syncType && !row.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeJobRepo) DeleteTerminalBefore(_ context.Context, _ syncdomain.JobStatus, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	payloads []*syncdomain.JobPayload
	accepted map[uuid.UUID]bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{accepted: make(map[uuid.UUID]bool)}
}

func (q *fakeQueue) Enqueue(_ context.Context, payload *syncdomain.JobPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.accepted[payload.JobID] {
		return syncdomain.ErrDuplicateJob
	}
	q.accepted[payload.JobID] = true
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) Start(context.Context, syncdomain.JobHandler) error { return nil }
func (q *fakeQueue) Stop(context.Context) error                        { return nil }

func (q *fakeQueue) Stats() syncdomain.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return syncdomain.QueueStats{Depth: len(q.payloads), Workers: 4, IsRunning: true}
}

// plainBox seals by prefixing so tests need no key material.
type plainBox struct{}

func (plainBox) Seal(plaintext []byte) ([]byte, error) {
	return append([]byte("sealed:"), plaintext...), nil
}

func (plainBox) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 7 || string(sealed[:7]) != "sealed:" {
		return nil, errors.New("not sealed")
	}
	return sealed[7:], nil
}

type entityKey struct {
	kind     mapping.Kind
	sourceID string
}

type fakeEntityStore struct {
	mu   sync.Mutex
	rows map[entityKey]mapping.EntityMapping
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{rows: make(map[entityKey]mapping.EntityMapping)}
}

func (s *fakeEntityStore) GetBySourceIDs(_ context.Context, _ uuid.UUID, kind mapping.Kind, sourceIDs []string) (map[string]mapping.EntityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]mapping.EntityMapping)
	for _, id := range sourceIDs {
		if row, ok := s.rows[entityKey{kind, id}]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func (s *fakeEntityStore) UpsertBatch(_ context.Context, mappings []mapping.EntityMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mappings {
		s.rows[entityKey{m.Kind, m.SourceID}] = m
	}
	return nil
}

func (s *fakeEntityStore) Delete(_ context.Context, _ uuid.UUID, kind mapping.Kind, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{kind, sourceID}
	if _, ok := s.rows[key]; !ok {
		return mapping.ErrMappingNotFound
	}
	delete(s.rows, key)
	return nil
}

func (s *fakeEntityStore) List(_ context.Context, _ uuid.UUID, kind mapping.Kind, offset, limit int) ([]mapping.EntityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []mapping.EntityMapping
	for key, row := range s.rows {
		if key.kind == kind {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeEntityStore) Stats(_ context.Context, _ uuid.UUID, kind mapping.Kind) (*mapping.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := mapping.Stats{Kind: kind}
	for key, row := range s.rows {
		if key.kind != kind {
			continue
		}
		stats.Total++
		if row.MappingType == mapping.TypeManual {
			stats.Manual++
		} else {
			stats.Auto++
		}
	}
	return &stats, nil
}

type fakeProductStore struct {
	mu   sync.Mutex
	rows map[string]mapping.ProductMapping
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{rows: make(map[string]mapping.ProductMapping)}
}

func (s *fakeProductStore) GetByVariationIDs(_ context.Context, _ uuid.UUID, variationIDs []string) (map[string]mapping.ProductMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]mapping.ProductMapping)
	for _, id := range variationIDs {
		if row, ok := s.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func (s *fakeProductStore) UpsertBatch(_ context.Context, mappings []mapping.ProductMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mappings {
		s.rows[m.SourceVariationID] = m
	}
	return nil
}

func (s *fakeProductStore) Delete(_ context.Context, _ uuid.UUID, variationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[variationID]; !ok {
		return mapping.ErrMappingNotFound
	}
	delete(s.rows, variationID)
	return nil
}

func (s *fakeProductStore) List(_ context.Context, _ uuid.UUID, offset, limit int) ([]mapping.ProductMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []mapping.ProductMapping
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceVariationID < out[j].SourceVariationID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeProductStore) Count(_ context.Context, _ uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *fakeProductStore) CountByType(_ context.Context, _ uuid.UUID, mappingType mapping.Type) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.MappingType == mappingType {
			n++
		}
	}
	return n, nil
}
