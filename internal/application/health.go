package application

import (
	"context"

	"github.com/mhollberg/strata/internal/ports/input"
	"github.com/mhollberg/strata/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	store   output.PayloadStore
	catalog output.LayerCatalog
}

// NewHealthService creates a new health service.
func NewHealthService(store output.PayloadStore, catalog output.LayerCatalog) *HealthService {
	return &HealthService{
		store:   store,
		catalog: catalog,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true // Basic health check
}

// IsReady returns true if the service is ready to accept requests. Ready
// means both backing stores answer.
func (s *HealthService) IsReady(ctx context.Context) bool {
	if err := s.catalog.Ping(ctx); err != nil {
		return false
	}
	if _, err := s.store.List(ctx); err != nil {
		return false
	}
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"catalog": "ok",
		"storage": "ok",
	}

	layerCount := 0
	records, err := s.catalog.List(ctx)
	if err != nil {
		components["catalog"] = "unavailable"
	} else {
		layerCount = len(records)
	}

	if _, err := s.store.List(ctx); err != nil {
		components["storage"] = "unavailable"
	}

	ready := components["catalog"] == "ok" && components["storage"] == "ok"

	return input.HealthDetails{
		Healthy:    s.IsHealthy(ctx),
		Ready:      ready,
		LayerCount: layerCount,
		Components: components,
	}
}
