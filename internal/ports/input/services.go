// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/mhollberg/strata/internal/domain"
)

// UploadRequest carries one layer upload.
type UploadRequest struct {
	Name       string
	Filename   string
	Properties []string
	Content    []byte
}

// UploadResult reports a successful upload.
type UploadResult struct {
	ID      string // New catalog record id
	Warning string // CRS advisory, empty when none
}

// LayerService defines the primary port for layer management.
type LayerService interface {
	// Upload validates and persists a payload, then catalogs it.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// List returns all cataloged layers, most recent first.
	List(ctx context.Context) ([]domain.LayerRecord, error)

	// Delete archives the payload and removes the catalog record.
	Delete(ctx context.Context, id string) error
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy    bool              // Overall health status
	Ready      bool              // Ready to accept requests
	LayerCount int               // Number of cataloged layers
	Components map[string]string // Component statuses
}
