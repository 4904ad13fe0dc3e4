package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLayerRecordValidate(t *testing.T) {
	valid := LayerRecord{
		Name:       "Roads",
		Filename:   "roads_171234.geojson",
		Properties: []string{"id", "type"},
	}

	tests := []struct {
		name    string
		mutate  func(*LayerRecord)
		wantErr bool
	}{
		{"valid record", func(_ *LayerRecord) {}, false},
		{"missing name", func(r *LayerRecord) { r.Name = "" }, true},
		{"blank name", func(r *LayerRecord) { r.Name = "   " }, true},
		{"missing filename", func(r *LayerRecord) { r.Filename = "" }, true},
		{"missing properties", func(r *LayerRecord) { r.Properties = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)

			err := rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error should unwrap to ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSortRecordsNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []LayerRecord{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
	}

	SortRecordsNewestFirst(records)

	wantOrder := []string{"b", "c", "a"}
	for i, want := range wantOrder {
		if records[i].ID != want {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, want)
		}
	}
}
