package output

import (
	"context"

	"github.com/mhollberg/strata/internal/domain"
)

// LayerCatalog defines the secondary port for layer metadata records.
// The catalog is the single source of truth for which layers exist.
type LayerCatalog interface {
	// Create stores a new record, stamping id and timestamps, and returns
	// the new id. The record must already pass domain validation.
	Create(ctx context.Context, rec domain.LayerRecord) (string, error)

	// List returns all records, unordered. Callers sort for presentation.
	List(ctx context.Context) ([]domain.LayerRecord, error)

	// FindByID returns a record, or domain.ErrLayerNotFound.
	FindByID(ctx context.Context, id string) (*domain.LayerRecord, error)

	// DeleteByID removes a record, or returns domain.ErrLayerNotFound.
	DeleteByID(ctx context.Context, id string) error

	// Ping verifies the catalog backend is reachable.
	Ping(ctx context.Context) error
}
