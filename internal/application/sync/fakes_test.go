package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/domain/tenant"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Source Fake
// ---------------------------------------------------------------------------

type fakeSource struct {
	categories    []catalog.Category
	attributes    []catalog.Attribute
	manufacturers []catalog.Manufacturer
	units         []catalog.Unit
	salesPrices   []catalog.SalesPrice
	variations    []catalog.Variation
	images        map[string][]catalog.ItemImage
	stock         []catalog.WarehouseStock

	categoriesErr error
	variationsErr error
	stockErr      error

	lastQuery *catalog.VariationQuery
}

var _ catalog.SourceClient = (*fakeSource)(nil)

func (f *fakeSource) Authenticate(ctx context.Context) error { return nil }

func (f *fakeSource) GetCategories(ctx context.Context) ([]catalog.Category, error) {
	return f.categories, f.categoriesErr
}

func (f *fakeSource) GetAttributes(ctx context.Context) ([]catalog.Attribute, error) {
	return f.attributes, nil
}

func (f *fakeSource) GetManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return f.manufacturers, nil
}

func (f *fakeSource) GetUnits(ctx context.Context) ([]catalog.Unit, error) {
	return f.units, nil
}

func (f *fakeSource) GetSalesPrices(ctx context.Context) ([]catalog.SalesPrice, error) {
	return f.salesPrices, nil
}

func (f *fakeSource) GetVariationPage(ctx context.Context, query catalog.VariationQuery) (*catalog.VariationPage, error) {
	variations, err := f.GetAllVariations(ctx, query)
	if err != nil {
		return nil, err
	}
	return &catalog.VariationPage{Entries: variations, Page: 1, IsLastPage: true}, nil
}

func (f *fakeSource) GetAllVariations(ctx context.Context, query catalog.VariationQuery) ([]catalog.Variation, error) {
	f.lastQuery = &query
	return f.variations, f.variationsErr
}

func (f *fakeSource) GetItemImages(ctx context.Context, itemIDs []string) (map[string][]catalog.ItemImage, error) {
	result := make(map[string][]catalog.ItemImage)
	for _, id := range itemIDs {
		if imgs, ok := f.images[id]; ok {
			result[id] = imgs
		}
	}
	return result, nil
}

func (f *fakeSource) GetStock(ctx context.Context) ([]catalog.WarehouseStock, error) {
	return f.stock, f.stockErr
}

// ---------------------------------------------------------------------------
// Sink Fake
// ---------------------------------------------------------------------------

// fakeSink assigns "sink-<referenceKey>" ids and records every call. failRefs
// marks individual reference keys as per-item failures; failKinds makes whole
// bulk calls of a kind error.
type fakeSink struct {
	mu sync.Mutex

	upserts   map[catalog.EntityKind][][]catalog.BulkPayload
	known     map[string]bool // reference keys seen before: action=update
	failRefs  map[string]string
	failKinds map[catalog.EntityKind]error
	failOnce  map[catalog.EntityKind]error // consumed by the first call

	stockUpdates [][]catalog.StockUpdate
	stockErr     error

	folderID  string
	folderErr error
	uploads   []catalog.MediaUpload
	uploadErr error

	attached map[string][]catalog.MediaAssociationPayload
	removed  map[string][]string
}

var _ catalog.SinkClient = (*fakeSink)(nil)

func newFakeSink() *fakeSink {
	return &fakeSink{
		upserts:   make(map[catalog.EntityKind][][]catalog.BulkPayload),
		known:     make(map[string]bool),
		failRefs:  make(map[string]string),
		failKinds: make(map[catalog.EntityKind]error),
		failOnce:  make(map[catalog.EntityKind]error),
		folderID:  "folder-1",
		attached:  make(map[string][]catalog.MediaAssociationPayload),
		removed:   make(map[string][]string),
	}
}

func (f *fakeSink) Authenticate(ctx context.Context) error { return nil }

func (f *fakeSink) BulkUpsert(ctx context.Context, kind catalog.EntityKind, items []catalog.BulkPayload) ([]catalog.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failKinds[kind]; err != nil {
		return nil, err
	}
	if err := f.failOnce[kind]; err != nil {
		delete(f.failOnce, kind)
		return nil, err
	}
	f.upserts[kind] = append(f.upserts[kind], items)

	results := make([]catalog.BulkResult, 0, len(items))
	for _, item := range items {
		ref := item.Reference()
		if msg, fail := f.failRefs[ref]; fail {
			results = append(results, catalog.BulkResult{ReferenceKey: ref, Success: false, ErrorMessage: msg})
			continue
		}
		action := catalog.BulkActionCreate
		if f.known[ref] {
			action = catalog.BulkActionUpdate
		}
		f.known[ref] = true
		results = append(results, catalog.BulkResult{
			ReferenceKey: ref,
			SinkID:       "sink-" + ref,
			Action:       action,
			Success:      true,
		})
	}
	return results, nil
}

func (f *fakeSink) UpdateStock(ctx context.Context, updates []catalog.StockUpdate) ([]catalog.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stockErr != nil {
		return nil, f.stockErr
	}
	f.stockUpdates = append(f.stockUpdates, updates)

	results := make([]catalog.BulkResult, 0, len(updates))
	for _, u := range updates {
		if msg, fail := f.failRefs[u.SinkProductID]; fail {
			results = append(results, catalog.BulkResult{ReferenceKey: u.SinkProductID, Success: false, ErrorMessage: msg})
			continue
		}
		results = append(results, catalog.BulkResult{ReferenceKey: u.SinkProductID, SinkID: u.SinkProductID, Success: true})
	}
	return results, nil
}

func (f *fakeSink) ExistsByReference(ctx context.Context, kind catalog.EntityKind, referenceKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known[referenceKey], nil
}

func (f *fakeSink) GetIDByReference(ctx context.Context, kind catalog.EntityKind, referenceKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[referenceKey] {
		return "", catalog.ErrEntityNotFound
	}
	return "sink-" + referenceKey, nil
}

func (f *fakeSink) GetOrCreateMediaFolder(ctx context.Context, name string) (string, error) {
	if f.folderErr != nil {
		return "", f.folderErr
	}
	return f.folderID, nil
}

func (f *fakeSink) UploadMediaFromURL(ctx context.Context, upload catalog.MediaUpload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, upload)
	if upload.MediaID != "" {
		return upload.MediaID, nil
	}
	return "media-" + upload.FileName, nil
}

func (f *fakeSink) ListProductMedia(ctx context.Context, sinkProductID string) ([]catalog.MediaAssociationPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached[sinkProductID], nil
}

func (f *fakeSink) RemoveProductMedia(ctx context.Context, sinkProductID string, associationIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[sinkProductID] = append(f.removed[sinkProductID], associationIDs...)
	return nil
}

// upsertedRefs flattens every upserted reference key of one kind, in call
// order.
func (f *fakeSink) upsertedRefs(kind catalog.EntityKind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []string
	for _, batch := range f.upserts[kind] {
		for _, item := range batch {
			refs = append(refs, item.Reference())
		}
	}
	return refs
}

// ---------------------------------------------------------------------------
// Mapping Store Fakes
// ---------------------------------------------------------------------------

type fakeEntityStore struct {
	mu   sync.Mutex
	rows map[mapping.Kind]map[string]mapping.EntityMapping
	err  error
}

var _ mapping.EntityMappingStore = (*fakeEntityStore)(nil)

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{rows: make(map[mapping.Kind]map[string]mapping.EntityMapping)}
}

func (f *fakeEntityStore) put(m mapping.EntityMapping) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[m.Kind] == nil {
		f.rows[m.Kind] = make(map[string]mapping.EntityMapping)
	}
	f.rows[m.Kind][m.SourceID] = m
}

func (f *fakeEntityStore) get(kind mapping.Kind, sourceID string) (mapping.EntityMapping, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[kind][sourceID]
	return m, ok
}

func (f *fakeEntityStore) GetBySourceIDs(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceIDs []string) (map[string]mapping.EntityMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]mapping.EntityMapping)
	for _, id := range sourceIDs {
		if m, ok := f.rows[kind][id]; ok {
			result[id] = m
		}
	}
	return result, nil
}

func (f *fakeEntityStore) UpsertBatch(ctx context.Context, mappings []mapping.EntityMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, m := range mappings {
		if f.rows[m.Kind] == nil {
			f.rows[m.Kind] = make(map[string]mapping.EntityMapping)
		}
		if existing, ok := f.rows[m.Kind][m.SourceID]; ok && existing.MappingType == mapping.TypeManual {
			existing.LastSyncedAt = m.LastSyncedAt
			f.rows[m.Kind][m.SourceID] = existing
			continue
		}
		f.rows[m.Kind][m.SourceID] = m
	}
	return nil
}

func (f *fakeEntityStore) Delete(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[kind][sourceID]; !ok {
		return mapping.ErrMappingNotFound
	}
	delete(f.rows[kind], sourceID)
	return nil
}

func (f *fakeEntityStore) List(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, offset, limit int) ([]mapping.EntityMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mapping.EntityMapping
	for _, m := range f.rows[kind] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeEntityStore) Stats(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind) (*mapping.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &mapping.Stats{Kind: kind}
	for _, m := range f.rows[kind] {
		stats.Total++
		if m.MappingType == mapping.TypeManual {
			stats.Manual++
		} else {
			stats.Auto++
		}
	}
	return stats, nil
}

type fakeProductStore struct {
	mu   sync.Mutex
	rows map[string]mapping.ProductMapping
	err  error
}

var _ mapping.ProductMappingStore = (*fakeProductStore)(nil)

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{rows: make(map[string]mapping.ProductMapping)}
}

func (f *fakeProductStore) put(m mapping.ProductMapping) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[m.SourceVariationID] = m
}

func (f *fakeProductStore) get(variationID string) (mapping.ProductMapping, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[variationID]
	return m, ok
}

func (f *fakeProductStore) GetByVariationIDs(ctx context.Context, tenantID uuid.UUID, variationIDs []string) (map[string]mapping.ProductMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]mapping.ProductMapping)
	for _, id := range variationIDs {
		if m, ok := f.rows[id]; ok {
			result[id] = m
		}
	}
	return result, nil
}

func (f *fakeProductStore) UpsertBatch(ctx context.Context, mappings []mapping.ProductMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, m := range mappings {
		if existing, ok := f.rows[m.SourceVariationID]; ok && existing.MappingType == mapping.TypeManual {
			existing.LastSyncedAt = m.LastSyncedAt
			f.rows[m.SourceVariationID] = existing
			continue
		}
		f.rows[m.SourceVariationID] = m
	}
	return nil
}

func (f *fakeProductStore) Delete(ctx context.Context, tenantID uuid.UUID, variationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[variationID]; !ok {
		return mapping.ErrMappingNotFound
	}
	delete(f.rows, variationID)
	return nil
}

func (f *fakeProductStore) List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]mapping.ProductMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mapping.ProductMapping
	for _, m := range f.rows {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeProductStore) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeProductStore) CountByType(ctx context.Context, tenantID uuid.UUID, mappingType mapping.Type) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.rows {
		if m.MappingType == mappingType {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Repository Fakes
// ---------------------------------------------------------------------------

type cacheKey struct {
	kind     catalog.CachedEntityKind
	sourceID string
}

type fakeCacheRepo struct {
	mu   sync.Mutex
	rows map[cacheKey]catalog.CachedEntity
}

var _ catalog.ConfigCacheRepository = (*fakeCacheRepo)(nil)

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{rows: make(map[cacheKey]catalog.CachedEntity)}
}

func (f *fakeCacheRepo) ReplaceKind(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind, entities []catalog.CachedEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.rows {
		if key.kind == kind {
			delete(f.rows, key)
		}
	}
	for _, e := range entities {
		f.rows[cacheKey{kind: kind, sourceID: e.SourceID}] = e
	}
	return nil
}

func (f *fakeCacheRepo) GetKind(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind) ([]catalog.CachedEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.CachedEntity
	for key, e := range f.rows {
		if key.kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCacheRepo) GetBySourceID(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind, sourceID string) (*catalog.CachedEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.rows[cacheKey{kind: kind, sourceID: sourceID}]; ok {
		return &e, nil
	}
	return nil, catalog.ErrEntityNotFound
}

type stateKey struct {
	tenantID uuid.UUID
	syncType syncdomain.SyncType
}

type fakeStateRepo struct {
	mu   sync.Mutex
	rows map[stateKey]syncdomain.SyncState
}

var _ syncdomain.SyncStateRepository = (*fakeStateRepo)(nil)

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{rows: make(map[stateKey]syncdomain.SyncState)}
}

func (f *fakeStateRepo) Get(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType) (*syncdomain.SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[stateKey{tenantID: tenantID, syncType: syncType}]; ok {
		copied := s
		return &copied, nil
	}
	return nil, syncdomain.ErrSyncStateNotFound
}

func (f *fakeStateRepo) Save(ctx context.Context, state *syncdomain.SyncState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[stateKey{tenantID: state.TenantID, syncType: state.SyncType}] = *state
	return nil
}

func (f *fakeStateRepo) Delete(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, stateKey{tenantID: tenantID, syncType: syncType})
	return nil
}

// markConfigSynced stamps a CONFIG watermark so product syncs pass their
// precondition.
func (f *fakeStateRepo) markConfigSynced(tenantID uuid.UUID, at time.Time) {
	state := syncdomain.SyncState{TenantID: tenantID, SyncType: syncdomain.SyncTypeConfig}
	state.MarkRun(at, true)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[stateKey{tenantID: tenantID, syncType: syncdomain.SyncTypeConfig}] = state
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]tenant.Tenant
}

var _ tenant.Repository = (*fakeTenantRepo)(nil)

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[uuid.UUID]tenant.Tenant)}
}

func (f *fakeTenantRepo) Save(ctx context.Context, t *tenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenants[t.ID] = *t
	return nil
}

func (f *fakeTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tenants[id]; ok {
		copied := t
		return &copied, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (f *fakeTenantRepo) FindActive(ctx context.Context) ([]tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tenant.Tenant
	for _, t := range f.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]syncdomain.SyncJob
}

var _ syncdomain.SyncJobRepository = (*fakeJobStore)(nil)

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]syncdomain.SyncJob)}
}

func (f *fakeJobStore) Save(ctx context.Context, job *syncdomain.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeJobStore) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		copied := j
		return &copied, nil
	}
	return nil, fmt.Errorf("job %s not found", id)
}

func (f *fakeJobStore) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]syncdomain.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []syncdomain.SyncJob
	for _, j := range f.jobs {
		if j.TenantID == tenantID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) ExistsActive(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.TenantID == tenantID && j.SyncType == syncType && !j.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeJobStore) DeleteTerminalBefore(ctx context.Context, status syncdomain.JobStatus, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAppQueue struct {
	mu       sync.Mutex
	payloads []*syncdomain.JobPayload
	err      error
}

var _ syncdomain.Queue = (*fakeAppQueue)(nil)

func (f *fakeAppQueue) Enqueue(ctx context.Context, payload *syncdomain.JobPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeAppQueue) Start(ctx context.Context, handler syncdomain.JobHandler) error { return nil }
func (f *fakeAppQueue) Stop(ctx context.Context) error                                 { return nil }
func (f *fakeAppQueue) Stats() syncdomain.QueueStats                                   { return syncdomain.QueueStats{} }

// plainBox prefixes instead of encrypting so tests can assert that sealed
// bytes differ from the plaintext without real key material.
type plainBox struct{}

var _ tenant.CredentialBox = plainBox{}

func (plainBox) Seal(plaintext []byte) ([]byte, error) {
	return append([]byte("sealed:"), plaintext...), nil
}

func (plainBox) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 7 || string(sealed[:7]) != "sealed:" {
		return nil, errors.New("not sealed")
	}
	return sealed[7:], nil
}
