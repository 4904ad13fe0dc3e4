package application

import (
	"log/slog"
	"sync"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// ViewSynchronizer owns the live map view. It guarantees the structural
// invariants of the viewport: the view is created once per mount and torn
// down once per unmount, exactly one base layer is attached after mount,
// and at most one overlay is attached at any completion point.
type ViewSynchronizer struct {
	mu        sync.Mutex
	newView   func() output.MapView
	view      output.MapView
	providers []domain.TileProvider
	sink      output.PositionSink
	logger    *slog.Logger

	state domain.ViewState
}

// ViewConfig holds the initial viewport configuration.
type ViewConfig struct {
	Center    domain.LatLng
	Zoom      int
	BaseLayer string
}

// NewViewSynchronizer creates a view synchronizer. newView is called on
// every mount so a re-mounted view never reuses a closed instance.
func NewViewSynchronizer(
	newView func() output.MapView,
	providers []domain.TileProvider,
	sink output.PositionSink,
	logger *slog.Logger,
	cfg ViewConfig,
) *ViewSynchronizer {
	if cfg.Zoom == 0 {
		cfg.Zoom = domain.DefaultZoom
	}
	if cfg.Center == (domain.LatLng{}) {
		cfg.Center = domain.DefaultCenter
	}
	if cfg.BaseLayer == "" {
		cfg.BaseLayer = "osm"
	}
	if len(providers) == 0 {
		providers = domain.DefaultTileProviders()
	}

	return &ViewSynchronizer{
		newView:   newView,
		providers: providers,
		sink:      sink,
		logger:    logger,
		state: domain.ViewState{
			Center:    cfg.Center,
			Zoom:      cfg.Zoom,
			BaseLayer: cfg.BaseLayer,
		},
	}
}

// Mount creates the map view, attaches the configured base layer and moves
// to the configured center and zoom. Mounting an already-mounted
// synchronizer is a no-op.
func (s *ViewSynchronizer) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != nil {
		s.logger.Warn("mount ignored: view already mounted")
		return
	}

	s.view = s.newView()
	provider, ok := domain.FindTileProvider(s.providers, s.state.BaseLayer)
	if !ok {
		provider = s.providers[0]
		s.state.BaseLayer = provider.ID
	}
	s.view.AttachBaseLayer(provider)
	s.view.SetView(s.state.Center, s.state.Zoom)

	s.logger.Info("map view mounted",
		"base_layer", s.state.BaseLayer,
		"zoom", s.state.Zoom,
	)
}

// Unmount tears the view down. Further calls are no-ops until the next
// Mount, which creates a fresh instance.
func (s *ViewSynchronizer) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		return
	}

	s.view.Close()
	s.view = nil
	s.state.Overlay = nil
	s.logger.Info("map view unmounted")
}

// SetBaseLayer swaps the attached base layer. Unknown provider ids are
// rejected so the single-base-layer invariant cannot be broken by a typo.
func (s *ViewSynchronizer) SetBaseLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider, ok := domain.FindTileProvider(s.providers, id)
	if !ok {
		return &domain.ValidationError{
			Field:      "baseLayer",
			Value:      id,
			Constraint: "known provider",
			Message:    "unknown tile provider",
		}
	}

	if id == s.state.BaseLayer {
		return nil
	}

	if s.view != nil {
		s.view.DetachBaseLayer(s.state.BaseLayer)
		s.view.AttachBaseLayer(provider)
	}
	s.state.BaseLayer = id
	return nil
}

// ApplyOverlay detaches the current overlay, attaches the new one and fits
// the viewport to its bound. Degenerate bounds (no geometry contributed)
// fall back to the fallback center at the default zoom.
func (s *ViewSynchronizer) ApplyOverlay(o *domain.Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == nil {
		s.logger.Warn("overlay dropped: view not mounted", "filename", o.Filename)
		return
	}

	if s.state.Overlay != nil {
		s.view.DetachOverlay(s.state.Overlay)
	}
	s.view.AttachOverlay(o)
	s.state.Overlay = o

	if o.Bounds.IsValid() {
		s.view.FitBounds(o.Bounds)
	} else {
		s.view.SetView(domain.FallbackCenter, domain.DefaultZoom)
		s.state.Center = domain.FallbackCenter
		s.state.Zoom = domain.DefaultZoom
	}
}

// ClearOverlay detaches the current overlay, if any.
func (s *ViewSynchronizer) ClearOverlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Overlay == nil {
		return
	}
	if s.view != nil {
		s.view.DetachOverlay(s.state.Overlay)
	}
	s.state.Overlay = nil
}

// Reset clears the overlay and restores the default viewport.
func (s *ViewSynchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Overlay != nil && s.view != nil {
		s.view.DetachOverlay(s.state.Overlay)
	}
	s.state.Overlay = nil
	s.state.Center = domain.DefaultCenter
	s.state.Zoom = domain.DefaultZoom

	if s.view != nil {
		s.view.SetView(domain.DefaultCenter, domain.DefaultZoom)
	}
}

// PanEnded records a completed user pan and reports the new center rounded
// to 4 decimal places.
func (s *ViewSynchronizer) PanEnded(center domain.LatLng) {
	s.mu.Lock()
	rounded := center.Round4()
	s.state.Center = rounded
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.ReportCenter(rounded)
	}
}

// ZoomEnded records a completed zoom and reports the integer level.
func (s *ViewSynchronizer) ZoomEnded(zoom int) {
	s.mu.Lock()
	s.state.Zoom = zoom
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.ReportZoom(zoom)
	}
}

// State returns a snapshot of the current view state.
func (s *ViewSynchronizer) State() domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mounted reports whether a view instance is currently attached.
func (s *ViewSynchronizer) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view != nil
}
