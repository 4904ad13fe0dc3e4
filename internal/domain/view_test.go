package domain

import (
	"testing"
)

func TestLatLngRound4(t *testing.T) {
	tests := []struct {
		name string
		in   LatLng
		want LatLng
	}{
		{"already rounded", LatLng{Lat: -0.8947, Lng: 100.3357}, LatLng{Lat: -0.8947, Lng: 100.3357}},
		{"rounds down", LatLng{Lat: 1.23454, Lng: 2.00001}, LatLng{Lat: 1.2345, Lng: 2.0}},
		{"rounds up", LatLng{Lat: 1.23456, Lng: -2.99995}, LatLng{Lat: 1.2346, Lng: -2.9999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Round4(); got != tt.want {
				t.Errorf("Round4() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildOverlay(t *testing.T) {
	payload := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"id":1,"type":"primary"},"geometry":{"type":"Point","coordinates":[100.3,-0.9]}},
		{"type":"Feature","properties":{"id":2,"type":"secondary"},"geometry":{"type":"LineString","coordinates":[[100.1,-1.1],[100.5,-0.7]]}}
	]}`

	ov, err := BuildOverlay("roads.geojson", []byte(payload))
	if err != nil {
		t.Fatalf("BuildOverlay() error = %v", err)
	}

	if ov.Filename != "roads.geojson" {
		t.Errorf("Filename = %q, want %q", ov.Filename, "roads.geojson")
	}
	if len(ov.Collection.Features) != 2 {
		t.Errorf("len(Features) = %d, want 2", len(ov.Collection.Features))
	}

	if !ov.Bounds.IsValid() {
		t.Fatal("Bounds should be valid")
	}
	if ov.Bounds.SouthWest.Lng != 100.1 || ov.Bounds.SouthWest.Lat != -1.1 {
		t.Errorf("SouthWest = %v, want {-1.1 100.1}", ov.Bounds.SouthWest)
	}
	if ov.Bounds.NorthEast.Lng != 100.5 || ov.Bounds.NorthEast.Lat != -0.7 {
		t.Errorf("NorthEast = %v, want {-0.7 100.5}", ov.Bounds.NorthEast)
	}

	if len(ov.Inspectors) != 2 {
		t.Fatalf("len(Inspectors) = %d, want 2", len(ov.Inspectors))
	}
	if ov.Inspectors[0][0].Key != "id" || ov.Inspectors[0][1].Key != "type" {
		t.Errorf("inspector keys = %v, want document order id,type", ov.Inspectors[0])
	}
}

func TestBuildOverlayNoGeometry(t *testing.T) {
	// Features without geometry render, but cannot produce a bound.
	payload := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"a":1},"geometry":null}
	]}`

	ov, err := BuildOverlay("empty.geojson", []byte(payload))
	if err != nil {
		t.Fatalf("BuildOverlay() error = %v", err)
	}
	if ov.Bounds.IsValid() {
		t.Error("Bounds should be invalid when no feature has geometry")
	}
}

func TestBuildOverlayInvalidPayload(t *testing.T) {
	_, err := BuildOverlay("bad.geojson", []byte(`{"type":"Feature"}`))
	if err == nil {
		t.Error("BuildOverlay() should error for non-FeatureCollection payload")
	}
}

func TestDefaultTileProviders(t *testing.T) {
	providers := DefaultTileProviders()

	if len(providers) != 5 {
		t.Fatalf("len(providers) = %d, want 5", len(providers))
	}

	wantIDs := []string{"osm", "satelliteLabeled", "terrain", "voyager", "positron"}
	for i, id := range wantIDs {
		if providers[i].ID != id {
			t.Errorf("providers[%d].ID = %q, want %q", i, providers[i].ID, id)
		}
		if providers[i].URL == "" {
			t.Errorf("provider %q has empty URL", id)
		}
		if providers[i].MaxZoom == 0 {
			t.Errorf("provider %q has zero MaxZoom", id)
		}
	}
}

func TestFindTileProvider(t *testing.T) {
	providers := DefaultTileProviders()

	if p, ok := FindTileProvider(providers, "osm"); !ok || p.ID != "osm" {
		t.Errorf("FindTileProvider(osm) = %v, %v", p, ok)
	}
	if _, ok := FindTileProvider(providers, "nonexistent"); ok {
		t.Error("FindTileProvider should not find unknown provider")
	}
}
