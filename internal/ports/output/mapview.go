package output

import (
	"context"

	"github.com/mhollberg/strata/internal/domain"
)

// MapView defines the secondary port for a live, mounted map instance.
// All calls happen from the owning synchronizer; implementations do not
// need to be safe for concurrent use.
type MapView interface {
	// AttachBaseLayer adds a base tile layer to the map.
	AttachBaseLayer(p domain.TileProvider)

	// DetachBaseLayer removes the base tile layer with the given id.
	DetachBaseLayer(id string)

	// AttachOverlay adds a rendered overlay to the map.
	AttachOverlay(o *domain.Overlay)

	// DetachOverlay removes a previously attached overlay.
	DetachOverlay(o *domain.Overlay)

	// FitBounds adjusts the viewport to the given bounding box.
	FitBounds(b domain.Bounds)

	// SetView moves the viewport to a center and zoom level.
	SetView(center domain.LatLng, zoom int)

	// Close tears the map instance down. A closed view must not be reused.
	Close()
}

// PayloadFetcher defines the secondary port the layer loader uses to fetch
// a geometry payload for a selected filename.
type PayloadFetcher interface {
	Fetch(ctx context.Context, filename string) ([]byte, error)
}

// PositionSink receives viewport observations from the view synchronizer.
type PositionSink interface {
	// ReportCenter is called after a user-driven pan completes, with the
	// new center rounded to 4 decimal places.
	ReportCenter(center domain.LatLng)

	// ReportZoom is called after a zoom completes, with the integer level.
	ReportZoom(zoom int)
}
