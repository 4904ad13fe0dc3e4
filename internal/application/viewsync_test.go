package application

import (
	"testing"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

func TestViewSynchronizerMount(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)

	sync.Mount()

	if !sync.Mounted() {
		t.Fatal("Mounted() = false after Mount()")
	}
	base := view.attachedBaseLayers()
	if len(base) != 1 || base[0] != "osm" {
		t.Errorf("attached base layers = %v, want [osm]", base)
	}
	if len(view.setViewCalls) != 1 || view.setViewCalls[0] != domain.DefaultCenter {
		t.Errorf("initial view = %v, want default center", view.setViewCalls)
	}
}

func TestViewSynchronizerMountTwiceIsNoOp(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)

	sync.Mount()
	sync.Mount()

	if base := view.attachedBaseLayers(); len(base) != 1 {
		t.Errorf("attached base layers = %v, want exactly one", base)
	}
}

func TestViewSynchronizerUnmount(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)

	sync.Mount()
	sync.Unmount()

	if sync.Mounted() {
		t.Error("Mounted() = true after Unmount()")
	}
	if !view.closed {
		t.Error("view should be closed")
	}

	// A second unmount must not close anything again.
	sync.Unmount()
}

func TestViewSynchronizerRemountUsesFreshInstance(t *testing.T) {
	views := []*mockMapView{newMockMapView(), newMockMapView()}
	created := 0
	sync := NewViewSynchronizer(
		func() output.MapView {
			v := views[created]
			created++
			return v
		},
		domain.DefaultTileProviders(),
		nil,
		testLogger(),
		ViewConfig{},
	)

	sync.Mount()
	sync.Unmount()
	sync.Mount()

	if created != 2 {
		t.Fatalf("factory called %d times, want 2", created)
	}
	if !views[0].closed {
		t.Error("first instance should be closed")
	}
	if views[1].closed {
		t.Error("second instance should be live")
	}
	if base := views[1].attachedBaseLayers(); len(base) != 1 {
		t.Errorf("fresh instance base layers = %v, want one", base)
	}
}

func TestViewSynchronizerSetBaseLayer(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	if err := sync.SetBaseLayer("terrain"); err != nil {
		t.Fatalf("SetBaseLayer() error = %v", err)
	}

	// Exactly one base layer attached after the swap.
	base := view.attachedBaseLayers()
	if len(base) != 1 || base[0] != "terrain" {
		t.Errorf("attached base layers = %v, want [terrain]", base)
	}
	if sync.State().BaseLayer != "terrain" {
		t.Errorf("state base layer = %q, want terrain", sync.State().BaseLayer)
	}
}

func TestViewSynchronizerSetBaseLayerUnknown(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	if err := sync.SetBaseLayer("mapbox-dark"); err == nil {
		t.Fatal("SetBaseLayer() should reject unknown providers")
	}

	if base := view.attachedBaseLayers(); len(base) != 1 || base[0] != "osm" {
		t.Errorf("attached base layers = %v, want [osm] untouched", base)
	}
}

func TestViewSynchronizerSetBaseLayerSameID(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	if err := sync.SetBaseLayer("osm"); err != nil {
		t.Fatalf("SetBaseLayer() error = %v", err)
	}
	if base := view.attachedBaseLayers(); len(base) != 1 {
		t.Errorf("attached base layers = %v, want one", base)
	}
}

func TestViewSynchronizerApplyOverlayFitsBounds(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	overlay, err := domain.BuildOverlay("a.geojson", []byte(validPayload))
	if err != nil {
		t.Fatalf("BuildOverlay() error = %v", err)
	}

	sync.ApplyOverlay(overlay)

	if len(view.fitCalls) != 1 {
		t.Fatalf("FitBounds calls = %d, want 1", len(view.fitCalls))
	}
	if !view.fitCalls[0].IsValid() {
		t.Error("fitted bounds should be valid")
	}
}

func TestViewSynchronizerApplyOverlayDegenerateBounds(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	// A collection whose features carry no geometry yields no bound.
	payload := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{"a":1}}]}`
	overlay, err := domain.BuildOverlay("bare.geojson", []byte(payload))
	if err != nil {
		t.Fatalf("BuildOverlay() error = %v", err)
	}

	sync.ApplyOverlay(overlay)

	if len(view.fitCalls) != 0 {
		t.Errorf("FitBounds calls = %d, want 0", len(view.fitCalls))
	}
	last := view.setViewCalls[len(view.setViewCalls)-1]
	if last != domain.FallbackCenter {
		t.Errorf("view moved to %v, want fallback center", last)
	}
}

func TestViewSynchronizerReset(t *testing.T) {
	view := newMockMapView()
	sync := newTestViewSync(view, nil)
	sync.Mount()

	overlay, _ := domain.BuildOverlay("a.geojson", []byte(validPayload))
	sync.ApplyOverlay(overlay)
	sync.Reset()

	if overlays := view.attachedOverlays(); len(overlays) != 0 {
		t.Errorf("attached overlays = %d, want 0 after reset", len(overlays))
	}
	state := sync.State()
	if state.Center != domain.DefaultCenter || state.Zoom != domain.DefaultZoom {
		t.Errorf("state = %+v, want default viewport", state)
	}
}

func TestViewSynchronizerPanReportsRounded(t *testing.T) {
	sink := &mockPositionSink{}
	sync := newTestViewSync(newMockMapView(), sink)
	sync.Mount()

	sync.PanEnded(domain.LatLng{Lat: -0.89471234, Lng: 100.33567891})

	if len(sink.centers) != 1 {
		t.Fatalf("reported centers = %d, want 1", len(sink.centers))
	}
	want := domain.LatLng{Lat: -0.8947, Lng: 100.3357}
	if sink.centers[0] != want {
		t.Errorf("reported center = %v, want %v", sink.centers[0], want)
	}
}

func TestViewSynchronizerZoomReportsInteger(t *testing.T) {
	sink := &mockPositionSink{}
	sync := newTestViewSync(newMockMapView(), sink)
	sync.Mount()

	sync.ZoomEnded(13)

	if len(sink.zooms) != 1 || sink.zooms[0] != 13 {
		t.Errorf("reported zooms = %v, want [13]", sink.zooms)
	}
	if sync.State().Zoom != 13 {
		t.Errorf("state zoom = %d, want 13", sync.State().Zoom)
	}
}
