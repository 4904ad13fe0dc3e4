// Package view provides a headless MapView implementation for
// programmatic clients.
package view

import (
	"log/slog"

	"github.com/mhollberg/strata/internal/domain"
)

// Headless implements the MapView port without a rendering surface. It
// tracks what a real map would show so callers can inspect the outcome of
// view operations. All calls come from the owning synchronizer, which
// serializes them.
type Headless struct {
	logger *slog.Logger

	baseLayer domain.TileProvider
	overlay   *domain.Overlay
	center    domain.LatLng
	zoom      int
	fitted    *domain.Bounds
	closed    bool
}

// NewHeadless creates a headless map view.
func NewHeadless(logger *slog.Logger) *Headless {
	return &Headless{logger: logger}
}

// AttachBaseLayer records the attached base tile layer.
func (v *Headless) AttachBaseLayer(p domain.TileProvider) {
	v.baseLayer = p
	v.logger.Debug("base layer attached", "id", p.ID)
}

// DetachBaseLayer removes the base tile layer with the given id.
func (v *Headless) DetachBaseLayer(id string) {
	if v.baseLayer.ID == id {
		v.baseLayer = domain.TileProvider{}
	}
}

// AttachOverlay records the attached overlay.
func (v *Headless) AttachOverlay(o *domain.Overlay) {
	v.overlay = o
	v.logger.Debug("overlay attached", "filename", o.Filename)
}

// DetachOverlay removes the overlay if it is the one attached.
func (v *Headless) DetachOverlay(o *domain.Overlay) {
	if v.overlay == o {
		v.overlay = nil
	}
}

// FitBounds records a viewport fit to the given bounding box.
func (v *Headless) FitBounds(b domain.Bounds) {
	v.fitted = &b
}

// SetView records a viewport move.
func (v *Headless) SetView(center domain.LatLng, zoom int) {
	v.center = center
	v.zoom = zoom
	v.fitted = nil
}

// Close marks the view as torn down.
func (v *Headless) Close() {
	v.closed = true
}

// Overlay returns the currently attached overlay, if any.
func (v *Headless) Overlay() *domain.Overlay {
	return v.overlay
}

// BaseLayer returns the currently attached base tile layer.
func (v *Headless) BaseLayer() domain.TileProvider {
	return v.baseLayer
}

// Viewport returns the last recorded center and zoom, and the fitted
// bound when the viewport was last adjusted by a bounds fit.
func (v *Headless) Viewport() (domain.LatLng, int, *domain.Bounds) {
	return v.center, v.zoom, v.fitted
}

// LogSink implements the PositionSink port by logging observations.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a position sink that logs reports.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// ReportCenter logs a completed pan.
func (s *LogSink) ReportCenter(center domain.LatLng) {
	s.logger.Info("map center", "lat", center.Lat, "lng", center.Lng)
}

// ReportZoom logs a completed zoom.
func (s *LogSink) ReportZoom(zoom int) {
	s.logger.Info("map zoom", "zoom", zoom)
}
