// Package domain contains the core types of the layer service.
package domain

import (
	"sort"
	"strings"
	"time"
)

// LayerRecord is the catalog entry for an uploaded GeoJSON layer.
// The filename points at exactly one live payload in the layer store
// for as long as the record exists.
type LayerRecord struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	Properties []string  `json:"properties"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks the fields required before a record may be created.
func (r *LayerRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{
			Field:      "name",
			Value:      r.Name,
			Constraint: "non-empty",
			Message:    "layer name is required",
		}
	}
	if strings.TrimSpace(r.Filename) == "" {
		return &ValidationError{
			Field:      "filename",
			Value:      r.Filename,
			Constraint: "non-empty",
			Message:    "layer filename is required",
		}
	}
	if len(r.Properties) == 0 {
		return &ValidationError{
			Field:      "properties",
			Value:      r.Properties,
			Constraint: "non-empty",
			Message:    "at least one property key is required",
		}
	}
	return nil
}

// SortRecordsNewestFirst orders records most-recent-first by creation time.
// This is the expected presentation order for layer listings.
func SortRecordsNewestFirst(records []LayerRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// SafeFilename reports whether a storage key is a plain filename without
// path traversal.
func SafeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// ArchiveEntry describes a payload copy created when a layer was deleted.
// Entries are written once and never mutated or pruned.
type ArchiveEntry struct {
	Name       string    // Archive object name
	Original   string    // Original payload filename
	ArchivedAt time.Time // When the deletion happened
	Size       int64     // Size in bytes
}
