package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mhollberg/strata/internal/ports/output"
)

// ErrRateLimited is returned when the reconcile API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// ReconcileResult contains the result of one reconciliation pass.
type ReconcileResult struct {
	LayersTotal      int       `json:"layers_total"`
	PayloadsTotal    int       `json:"payloads_total"`
	OrphanedPayloads []string  `json:"orphaned_payloads,omitempty"`
	DanglingRecords  []string  `json:"dangling_records,omitempty"`
	CheckedAt        time.Time `json:"checked_at"`
	NextScheduledAt  time.Time `json:"next_scheduled_at,omitempty"`
}

// Reconciler periodically compares the payload store against the catalog.
// Divergence is surfaced through logs and gauges, never repaired: an
// orphaned payload may be a half-finished upload, and deleting it here
// would race the catalog insert.
type Reconciler struct {
	store    output.PayloadStore
	catalog  output.LayerCatalog
	metrics  output.MetricsCollector
	interval time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Rate limiting for API triggers
	lastAPIRun time.Time
	apiMutex   sync.Mutex

	// Prevents concurrent reconcile passes
	runMutex sync.Mutex

	// Track next scheduled pass for reporting
	nextRun time.Time
	nextMu  sync.RWMutex
}

// NewReconciler creates a new reconciler.
func NewReconciler(
	store output.PayloadStore,
	catalog output.LayerCatalog,
	metrics output.MetricsCollector,
	interval time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:    store,
		catalog:  catalog,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Initialize to past time to allow immediate first API call
		lastAPIRun: time.Now().Add(-31 * time.Second),
	}
}

// Start begins the periodic reconcile scheduler.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("starting reconciler", "interval", r.interval)

	r.wg.Add(1)
	go r.run(ctx)
}

// run is the main reconcile loop.
func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.setNextRun(time.Now().Add(r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped: context canceled")
			return
		case <-r.stopCh:
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.logger.Debug("scheduled reconcile triggered")
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error("reconcile failed", "error", err)
			}
			r.setNextRun(time.Now().Add(r.interval))
		}
	}
}

// Stop gracefully stops the reconciler.
func (r *Reconciler) Stop() {
	r.logger.Info("stopping reconciler")
	close(r.stopCh)
	r.wg.Wait()
}

// TriggerReconcile manually triggers a pass with rate limiting.
// Returns ErrRateLimited if called more than 2 times per minute.
func (r *Reconciler) TriggerReconcile(ctx context.Context) (ReconcileResult, error) {
	r.apiMutex.Lock()
	defer r.apiMutex.Unlock()

	// Rate limit: 30 seconds cooldown (allows ~2 requests per minute)
	if time.Since(r.lastAPIRun) < 30*time.Second {
		return ReconcileResult{}, ErrRateLimited
	}
	r.lastAPIRun = time.Now()

	return r.Reconcile(ctx)
}

// Reconcile runs one pass: list both sides, pair records with payloads by
// filename, report what is left over on either side.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	r.runMutex.Lock()
	defer r.runMutex.Unlock()

	records, err := r.catalog.List(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	objects, err := r.store.List(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	referenced := make(map[string]bool, len(records))
	for _, rec := range records {
		referenced[rec.Filename] = true
	}
	stored := make(map[string]bool, len(objects))
	for _, obj := range objects {
		stored[obj.Key] = true
	}

	result := ReconcileResult{
		LayersTotal:     len(records),
		PayloadsTotal:   len(objects),
		CheckedAt:       time.Now(),
		NextScheduledAt: r.getNextRun(),
	}

	for _, obj := range objects {
		if !referenced[obj.Key] {
			result.OrphanedPayloads = append(result.OrphanedPayloads, obj.Key)
		}
	}
	for _, rec := range records {
		if !stored[rec.Filename] {
			result.DanglingRecords = append(result.DanglingRecords, rec.ID)
		}
	}

	r.metrics.SetLayerCount(len(records))
	r.metrics.SetOrphanedPayloads(len(result.OrphanedPayloads))

	for _, key := range result.OrphanedPayloads {
		r.logger.Warn("payload has no catalog record", "filename", key)
	}
	for _, id := range result.DanglingRecords {
		r.logger.Warn("catalog record has no payload", "id", id)
	}

	r.logger.Info("reconcile completed",
		"layers", result.LayersTotal,
		"payloads", result.PayloadsTotal,
		"orphaned", len(result.OrphanedPayloads),
		"dangling", len(result.DanglingRecords),
	)
	return result, nil
}

// setNextRun updates the next scheduled pass time.
func (r *Reconciler) setNextRun(t time.Time) {
	r.nextMu.Lock()
	defer r.nextMu.Unlock()
	r.nextRun = t
}

// getNextRun returns the next scheduled pass time.
func (r *Reconciler) getNextRun() time.Time {
	r.nextMu.RLock()
	defer r.nextMu.RUnlock()
	return r.nextRun
}

// Interval returns the reconcile interval.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}
