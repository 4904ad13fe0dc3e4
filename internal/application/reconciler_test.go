package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mhollberg/strata/internal/domain"
)

func seedPair(t *testing.T, store *mockPayloadStore, catalog *mockCatalog, filename string) string {
	t.Helper()

	if err := store.Save(context.Background(), filename, strings.NewReader("{}")); err != nil {
		t.Fatalf("Save(%q) error = %v", filename, err)
	}
	id, err := catalog.Create(context.Background(), domain.LayerRecord{
		Name:       filename,
		Filename:   filename,
		Properties: []string{"name"},
	})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", filename, err)
	}
	return id
}

func TestReconcilerCleanState(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	metrics := newMockMetrics()
	seedPair(t, store, catalog, "a.geojson")
	seedPair(t, store, catalog, "b.geojson")

	r := NewReconciler(store, catalog, metrics, time.Hour, testLogger())

	result, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.LayersTotal != 2 || result.PayloadsTotal != 2 {
		t.Errorf("totals = %d/%d, want 2/2", result.LayersTotal, result.PayloadsTotal)
	}
	if len(result.OrphanedPayloads) != 0 || len(result.DanglingRecords) != 0 {
		t.Errorf("divergence = %v/%v, want none", result.OrphanedPayloads, result.DanglingRecords)
	}
	if metrics.layerCount != 2 {
		t.Errorf("layer count gauge = %d, want 2", metrics.layerCount)
	}
}

func TestReconcilerFindsOrphansAndDangling(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	metrics := newMockMetrics()
	seedPair(t, store, catalog, "paired.geojson")

	// Payload without a record.
	if err := store.Save(context.Background(), "orphan.geojson", strings.NewReader("{}")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Record without a payload.
	danglingID, err := catalog.Create(context.Background(), domain.LayerRecord{
		Name:       "gone",
		Filename:   "gone.geojson",
		Properties: []string{"name"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r := NewReconciler(store, catalog, metrics, time.Hour, testLogger())

	result, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.OrphanedPayloads) != 1 || result.OrphanedPayloads[0] != "orphan.geojson" {
		t.Errorf("OrphanedPayloads = %v, want [orphan.geojson]", result.OrphanedPayloads)
	}
	if len(result.DanglingRecords) != 1 || result.DanglingRecords[0] != danglingID {
		t.Errorf("DanglingRecords = %v, want [%s]", result.DanglingRecords, danglingID)
	}
	if metrics.orphaned != 1 {
		t.Errorf("orphaned gauge = %d, want 1", metrics.orphaned)
	}

	// Reconciliation only reports; both sides stay untouched.
	if exists, _ := store.Exists(context.Background(), "orphan.geojson"); !exists {
		t.Error("orphaned payload must not be removed")
	}
	if _, err := catalog.FindByID(context.Background(), danglingID); err != nil {
		t.Error("dangling record must not be removed")
	}
}

func TestReconcilerTriggerRateLimit(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()

	r := NewReconciler(store, catalog, newMockMetrics(), time.Hour, testLogger())

	if _, err := r.TriggerReconcile(context.Background()); err != nil {
		t.Fatalf("first TriggerReconcile() error = %v", err)
	}

	// Second trigger inside the 30s window is rejected.
	if _, err := r.TriggerReconcile(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second trigger error = %v, want ErrRateLimited", err)
	}

	// Scheduled passes are not rate limited.
	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Errorf("Reconcile() error = %v", err)
	}
}

func TestReconcilerCatalogFailure(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	catalog.listErr = errors.New("catalog down")

	r := NewReconciler(store, catalog, newMockMetrics(), time.Hour, testLogger())

	if _, err := r.Reconcile(context.Background()); err == nil {
		t.Error("Reconcile() should propagate catalog failure")
	}
}

func TestReconcilerStartStop(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()

	r := NewReconciler(store, catalog, newMockMetrics(), 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	r.Stop()
}
