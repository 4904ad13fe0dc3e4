package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantErr  bool
		wantKeys []string
		wantWarn bool
	}{
		{
			name:     "valid collection",
			payload:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":1,"type":"primary"},"geometry":{"type":"Point","coordinates":[100.3,-0.9]}}]}`,
			wantKeys: []string{"id", "type"},
		},
		{
			name:    "not json",
			payload: `{{{`,
			wantErr: true,
		},
		{
			name:    "wrong top-level type",
			payload: `{"type":"Feature","features":[{"properties":{"a":1}}]}`,
			wantErr: true,
		},
		{
			name:    "empty features",
			payload: `{"type":"FeatureCollection","features":[]}`,
			wantErr: true,
		},
		{
			name:    "missing features",
			payload: `{"type":"FeatureCollection"}`,
			wantErr: true,
		},
		{
			name:    "first feature without properties",
			payload: `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null}]}`,
			wantErr: true,
		},
		{
			name:    "null properties",
			payload: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":null}]}`,
			wantErr: true,
		},
		{
			name:     "wgs84 crs accepted without warning",
			payload:  `{"type":"FeatureCollection","crs":{"properties":{"name":"urn:ogc:def:crs:OGC:1.3:CRS84"}},"features":[{"properties":{"a":1}}]}`,
			wantKeys: []string{"a"},
		},
		{
			name:     "foreign crs produces advisory",
			payload:  `{"type":"FeatureCollection","crs":{"properties":{"name":"urn:ogc:def:crs:EPSG::25832"}},"features":[{"properties":{"a":1}}]}`,
			wantKeys: []string{"a"},
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ValidatePayload([]byte(tt.payload))

			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error should unwrap to ErrInvalidInput, got %v", err)
				}
				return
			}

			if !reflect.DeepEqual(info.PropertyKeys, tt.wantKeys) {
				t.Errorf("PropertyKeys = %v, want %v", info.PropertyKeys, tt.wantKeys)
			}
			if (info.Warning != "") != tt.wantWarn {
				t.Errorf("Warning = %q, wantWarn %v", info.Warning, tt.wantWarn)
			}
		})
	}
}

func TestValidatePayloadFeatureCount(t *testing.T) {
	payload := `{"type":"FeatureCollection","features":[
		{"properties":{"a":1}},
		{"properties":{"b":2}},
		{"properties":{"c":3}}
	]}`

	info, err := ValidatePayload([]byte(payload))
	if err != nil {
		t.Fatalf("ValidatePayload() error = %v", err)
	}
	if info.FeatureCount != 3 {
		t.Errorf("FeatureCount = %d, want 3", info.FeatureCount)
	}
}

func TestFeaturePropertyKeysPreservesOrder(t *testing.T) {
	// Key order must match the document, not Go map iteration order.
	feature := `{"properties":{"zeta":1,"alpha":2,"mid":{"nested":true},"last":[1,2]}}`

	keys, err := FeaturePropertyKeys([]byte(feature))
	if err != nil {
		t.Fatalf("FeaturePropertyKeys() error = %v", err)
	}

	want := []string{"zeta", "alpha", "mid", "last"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestFeaturePropertyKeysNonObject(t *testing.T) {
	_, err := FeaturePropertyKeys([]byte(`{"properties":[1,2,3]}`))
	if err == nil {
		t.Error("FeaturePropertyKeys() should error for array properties")
	}
}

func TestFeatureInspectorEntries(t *testing.T) {
	feature := `{"properties":{"name":"Roads","lanes":2,"oneway":false}}`

	entries, err := FeatureInspectorEntries([]byte(feature))
	if err != nil {
		t.Fatalf("FeatureInspectorEntries() error = %v", err)
	}

	want := []InspectorEntry{
		{Key: "name", Value: "Roads"},
		{Key: "lanes", Value: "2"},
		{Key: "oneway", Value: "false"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %v, want %v", entries, want)
	}
}

func TestFeatureInspectorEntriesNoProperties(t *testing.T) {
	entries, err := FeatureInspectorEntries([]byte(`{"type":"Feature","geometry":null}`))
	if err != nil {
		t.Fatalf("FeatureInspectorEntries() error = %v", err)
	}
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
}

func TestCRSIsWGS84(t *testing.T) {
	tests := []struct {
		name string
		crs  string
		want bool
	}{
		{"empty defaults to CRS84", "", true},
		{"urn CRS84", "urn:ogc:def:crs:OGC:1.3:CRS84", true},
		{"epsg 4326", "EPSG:4326", true},
		{"wgs text", "WGS 84", true},
		{"utm", "urn:ogc:def:crs:EPSG::25832", false},
		{"web mercator", "EPSG:3857", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRSIsWGS84(tt.crs); got != tt.want {
				t.Errorf("CRSIsWGS84(%q) = %v, want %v", tt.crs, got, tt.want)
			}
		})
	}
}
