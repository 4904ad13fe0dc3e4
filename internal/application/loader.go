package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// LoadPhase is the loader's lifecycle phase.
type LoadPhase int

const (
	// PhaseIdle means no layer is selected.
	PhaseIdle LoadPhase = iota
	// PhaseLoading means a fetch for the selected layer is in flight.
	PhaseLoading
	// PhaseRendered means the selected layer's overlay is attached.
	PhaseRendered
	// PhaseFailed means the most recent fetch for the selection failed.
	PhaseFailed
)

// String returns the phase name.
func (p LoadPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseRendered:
		return "rendered"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadState is the loader's observable state.
type LoadState struct {
	Phase    LoadPhase
	Filename string // Selected payload, empty when idle
	Err      error  // Set only in PhaseFailed
}

// LayerLoader drives overlay loading for the selected layer. Fetches run in
// their own goroutine; a completion whose target no longer matches the
// current selection is stale and discarded without touching the view.
type LayerLoader struct {
	fetcher output.PayloadFetcher
	view    *ViewSynchronizer
	metrics output.MetricsCollector
	logger  *slog.Logger

	mu        sync.Mutex
	selection string
	state     LoadState

	wg sync.WaitGroup
}

// NewLayerLoader creates a layer loader bound to a view synchronizer.
func NewLayerLoader(
	fetcher output.PayloadFetcher,
	view *ViewSynchronizer,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *LayerLoader {
	return &LayerLoader{
		fetcher: fetcher,
		view:    view,
		metrics: metrics,
		logger:  logger,
		state:   LoadState{Phase: PhaseIdle},
	}
}

// Select switches the selection to filename and starts an asynchronous
// fetch. Selecting the empty filename clears the selection and resets the
// view; any fetch still in flight completes stale.
func (l *LayerLoader) Select(ctx context.Context, filename string) {
	l.mu.Lock()

	if filename == "" {
		l.selection = ""
		l.state = LoadState{Phase: PhaseIdle}
		l.mu.Unlock()

		l.view.Reset()
		l.logger.Info("layer selection cleared")
		return
	}

	l.selection = filename
	l.state = LoadState{Phase: PhaseLoading, Filename: filename}
	l.mu.Unlock()

	l.logger.Info("loading layer", "filename", filename)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.load(ctx, filename)
	}()
}

// Reset clears the selection and restores the default view. A completion
// arriving after reset finds its target unselected and is discarded.
func (l *LayerLoader) Reset() {
	l.mu.Lock()
	l.selection = ""
	l.state = LoadState{Phase: PhaseIdle}
	l.mu.Unlock()

	l.view.Reset()
}

// State returns a snapshot of the loader state.
func (l *LayerLoader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Wait blocks until all in-flight fetches have completed. Used on shutdown.
func (l *LayerLoader) Wait() {
	l.wg.Wait()
}

// load fetches and renders one payload. It runs outside the loader lock;
// only the completion handoff is synchronized.
func (l *LayerLoader) load(ctx context.Context, filename string) {
	data, err := l.fetcher.Fetch(ctx, filename)
	if err != nil {
		l.complete(filename, nil, err)
		return
	}

	overlay, err := domain.BuildOverlay(filename, data)
	l.complete(filename, overlay, err)
}

// complete applies one fetch result. The target filename is compared
// against the current selection under the lock; mismatches are stale.
func (l *LayerLoader) complete(filename string, overlay *domain.Overlay, err error) {
	l.mu.Lock()

	if l.selection != filename {
		selected := l.selection
		l.mu.Unlock()
		l.logger.Info("discarding stale layer result",
			"filename", filename, "selected", selected)
		l.metrics.IncLoadCount("stale")
		return
	}

	if err != nil {
		l.state = LoadState{Phase: PhaseFailed, Filename: filename, Err: err}
		l.mu.Unlock()

		// The previous overlay and viewport stay as they are.
		l.logger.Error("layer load failed", "filename", filename, "error", err)
		l.metrics.IncLoadCount("failed")
		return
	}

	l.state = LoadState{Phase: PhaseRendered, Filename: filename}
	// The overlay handoff happens under the lock so a concurrent Reset
	// cannot interleave between the selection check and the attach.
	l.view.ApplyOverlay(overlay)
	l.mu.Unlock()

	l.logger.Info("layer rendered",
		"filename", filename, "features", len(overlay.Collection.Features))
	l.metrics.IncLoadCount("rendered")
}
