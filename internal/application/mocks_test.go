package application

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// mockPayloadStore is an in-memory PayloadStore.
type mockPayloadStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
	archive  map[string][]byte

	saveErr    error
	archiveErr error
	listErr    error
}

func newMockPayloadStore() *mockPayloadStore {
	return &mockPayloadStore{
		payloads: make(map[string][]byte),
		archive:  make(map[string][]byte),
	}
}

func (m *mockPayloadStore) Save(_ context.Context, filename string, r io.Reader) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[filename] = data
	return nil
}

func (m *mockPayloadStore) ArchiveAndDelete(_ context.Context, filename string) error {
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.payloads[filename]
	if !ok {
		return nil
	}
	m.archive[filename+".backup.test"] = data
	delete(m.payloads, filename)
	return nil
}

func (m *mockPayloadStore) GetReader(_ context.Context, filename string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.payloads[filename]
	if !ok {
		return nil, &domain.StorageError{Operation: "read", Filename: filename, Err: domain.ErrPayloadNotFound}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockPayloadStore) Exists(_ context.Context, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.payloads[filename]
	return ok, nil
}

func (m *mockPayloadStore) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []output.StorageObject
	for key, data := range m.payloads {
		objects = append(objects, output.StorageObject{Key: key, Size: int64(len(data))})
	}
	return objects, nil
}

func (m *mockPayloadStore) ListArchive(_ context.Context) ([]output.StorageObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []output.StorageObject
	for key, data := range m.archive {
		objects = append(objects, output.StorageObject{Key: key, Size: int64(len(data))})
	}
	return objects, nil
}

// mockCatalog is an in-memory LayerCatalog.
type mockCatalog struct {
	mu      sync.Mutex
	records map[string]domain.LayerRecord

	createErr error
	listErr   error
	pingErr   error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{records: make(map[string]domain.LayerRecord)}
}

func (m *mockCatalog) Create(_ context.Context, rec domain.LayerRecord) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *mockCatalog) List(_ context.Context) ([]domain.LayerRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.LayerRecord
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

func (m *mockCatalog) FindByID(_ context.Context, id string) (*domain.LayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, &domain.CatalogError{Operation: "find", ID: id, Err: domain.ErrLayerNotFound}
	}
	return &rec, nil
}

func (m *mockCatalog) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return &domain.CatalogError{Operation: "delete", ID: id, Err: domain.ErrLayerNotFound}
	}
	delete(m.records, id)
	return nil
}

func (m *mockCatalog) Ping(_ context.Context) error {
	return m.pingErr
}

// mockMetrics records metric calls.
type mockMetrics struct {
	mu         sync.Mutex
	uploads    map[bool]int
	deletes    map[bool]int
	loads      map[string]int
	layerCount int
	orphaned   int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		uploads: make(map[bool]int),
		deletes: make(map[bool]int),
		loads:   make(map[string]int),
	}
}

func (m *mockMetrics) IncUploadCount(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[success]++
}

func (m *mockMetrics) IncDeleteCount(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[success]++
}

func (m *mockMetrics) IncLoadCount(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[outcome]++
}

func (m *mockMetrics) SetLayerCount(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layerCount = count
}

func (m *mockMetrics) SetOrphanedPayloads(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orphaned = count
}

func (m *mockMetrics) IncStorageOperations(string, bool) {}

func (m *mockMetrics) ObserveStorageDuration(string, time.Duration) {}

func (m *mockMetrics) loadCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[outcome]
}

// mockMapView records every structural call made against the map.
type mockMapView struct {
	mu           sync.Mutex
	baseLayers   []string // currently attached, in attach order
	overlays     []*domain.Overlay
	setViewCalls []domain.LatLng
	fitCalls     []domain.Bounds
	closed       bool
}

func newMockMapView() *mockMapView {
	return &mockMapView{}
}

func (m *mockMapView) AttachBaseLayer(p domain.TileProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseLayers = append(m.baseLayers, p.ID)
}

func (m *mockMapView) DetachBaseLayer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, attached := range m.baseLayers {
		if attached == id {
			m.baseLayers = append(m.baseLayers[:i], m.baseLayers[i+1:]...)
			return
		}
	}
}

func (m *mockMapView) AttachOverlay(o *domain.Overlay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlays = append(m.overlays, o)
}

func (m *mockMapView) DetachOverlay(o *domain.Overlay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, attached := range m.overlays {
		if attached == o {
			m.overlays = append(m.overlays[:i], m.overlays[i+1:]...)
			return
		}
	}
}

func (m *mockMapView) FitBounds(b domain.Bounds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fitCalls = append(m.fitCalls, b)
}

func (m *mockMapView) SetView(center domain.LatLng, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setViewCalls = append(m.setViewCalls, center)
}

func (m *mockMapView) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockMapView) attachedOverlays() []*domain.Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Overlay, len(m.overlays))
	copy(out, m.overlays)
	return out
}

func (m *mockMapView) attachedBaseLayers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.baseLayers))
	copy(out, m.baseLayers)
	return out
}

// mockFetcher serves payloads from a map. A gate registered for a filename
// blocks that fetch until the gate is closed, for in-flight staleness tests.
type mockFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	gates    map[string]chan struct{}
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

// holdFetch makes fetches for filename block until the returned release
// function is called.
func (m *mockFetcher) holdFetch(filename string) func() {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[filename] = gate
	m.mu.Unlock()
	return func() { close(gate) }
}

func (m *mockFetcher) Fetch(_ context.Context, filename string) ([]byte, error) {
	m.mu.Lock()
	gate := m.gates[filename]
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[filename]; ok {
		return nil, err
	}
	data, ok := m.payloads[filename]
	if !ok {
		return nil, &domain.FetchError{Filename: filename, Err: domain.ErrPayloadNotFound}
	}
	return data, nil
}

// mockPositionSink records reported positions.
type mockPositionSink struct {
	mu      sync.Mutex
	centers []domain.LatLng
	zooms   []int
}

func (m *mockPositionSink) ReportCenter(center domain.LatLng) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centers = append(m.centers, center)
}

func (m *mockPositionSink) ReportZoom(zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zooms = append(m.zooms, zoom)
}
