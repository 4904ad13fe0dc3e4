package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Default viewport used on first mount and whenever the view is reset.
var (
	DefaultCenter = LatLng{Lat: -0.8947, Lng: 100.3357}
	// FallbackCenter is used when a rendered overlay has no usable bound.
	FallbackCenter = LatLng{Lat: -1.13, Lng: 100.17}
)

// DefaultZoom is the zoom level paired with DefaultCenter and FallbackCenter.
const DefaultZoom = 11

// LatLng is a WGS 84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Round4 returns the coordinate rounded to 4 decimal places, the precision
// used for position reporting.
func (p LatLng) Round4() LatLng {
	return LatLng{
		Lat: math.Round(p.Lat*10000) / 10000,
		Lng: math.Round(p.Lng*10000) / 10000,
	}
}

// Bounds is a geographic bounding box. A Bounds that never saw a coordinate
// is invalid and must not be used for viewport fitting.
type Bounds struct {
	SouthWest LatLng
	NorthEast LatLng
	valid     bool
}

// NewBounds builds a valid bounding box from two corners.
func NewBounds(sw, ne LatLng) Bounds {
	return Bounds{SouthWest: sw, NorthEast: ne, valid: true}
}

// IsValid reports whether the box was derived from at least one coordinate.
func (b Bounds) IsValid() bool {
	return b.valid
}

// boundsFromOrb converts an orb bound accumulated over overlay geometries.
func boundsFromOrb(bound orb.Bound, seen bool) Bounds {
	if !seen {
		return Bounds{}
	}
	return NewBounds(
		LatLng{Lat: bound.Min.Y(), Lng: bound.Min.X()},
		LatLng{Lat: bound.Max.Y(), Lng: bound.Max.X()},
	)
}

// ViewState is the transient state of a mounted map view: where it looks,
// which base layer is attached, and the single live overlay, if any.
type ViewState struct {
	Center    LatLng
	Zoom      int
	BaseLayer string
	Overlay   *Overlay
}

// Overlay is a renderable representation of a fetched GeoJSON payload.
type Overlay struct {
	Filename   string                     // Payload this overlay was built from
	Collection *geojson.FeatureCollection // Parsed features
	Bounds     Bounds                     // Union of feature geometry bounds
	Inspectors [][]InspectorEntry         // Per-feature popup rows, document key order
}

// BuildOverlay parses a fetched payload into an overlay. The payload must be
// a FeatureCollection; features without geometry are rendered without
// contributing to the bound. Features carrying properties get an inspector
// with every key/value pair in the feature's own key order.
func BuildOverlay(filename string, raw []byte) (*Overlay, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, &ValidationError{
			Field:      "payload",
			Value:      filename,
			Constraint: "FeatureCollection",
			Message:    "payload did not parse as a FeatureCollection",
		}
	}

	var (
		bound orb.Bound
		seen  bool
	)
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !seen {
			bound = b
			seen = true
		} else {
			bound = bound.Union(b)
		}
	}

	rawFeatures, err := RawFeatures(raw)
	if err != nil {
		return nil, err
	}
	inspectors := make([][]InspectorEntry, len(rawFeatures))
	for i, rf := range rawFeatures {
		entries, err := FeatureInspectorEntries(rf)
		if err != nil {
			// A feature without inspectable properties is rendered bare.
			continue
		}
		inspectors[i] = entries
	}

	return &Overlay{
		Filename:   filename,
		Collection: fc,
		Bounds:     boundsFromOrb(bound, seen),
		Inspectors: inspectors,
	}, nil
}

// TileProvider describes one base tile layer the viewer can attach.
type TileProvider struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

// DefaultTileProviders returns the built-in base layer registry.
func DefaultTileProviders() []TileProvider {
	return []TileProvider{
		{
			ID:          "osm",
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
			MaxZoom:     19,
		},
		{
			ID:          "satelliteLabeled",
			URL:         "https://mt1.google.com/vt/lyrs=s,h&x={x}&y={y}&z={z}",
			Attribution: "© Google",
			MaxZoom:     20,
		},
		{
			ID:          "terrain",
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
			Attribution: "© Esri",
			MaxZoom:     19,
		},
		{
			ID:          "voyager",
			URL:         "https://{s}.basemaps.cartocdn.com/rastertiles/voyager/{z}/{x}/{y}{r}.png",
			Attribution: "© CARTO",
			MaxZoom:     18,
		},
		{
			ID:          "positron",
			URL:         "https://{s}.basemaps.cartocdn.com/positron/{z}/{x}/{y}{r}.png",
			Attribution: "© CARTO",
			MaxZoom:     19,
		},
	}
}

// FindTileProvider returns the provider with the given id.
func FindTileProvider(providers []TileProvider, id string) (TileProvider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return TileProvider{}, false
}
