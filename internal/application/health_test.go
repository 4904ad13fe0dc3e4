package application

import (
	"context"
	"errors"
	"testing"
)

func TestHealthServiceHealthy(t *testing.T) {
	svc := NewHealthService(newMockPayloadStore(), newMockCatalog())

	if !svc.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = false, want true")
	}
}

func TestHealthServiceReady(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	svc := NewHealthService(store, catalog)

	if !svc.IsReady(context.Background()) {
		t.Error("IsReady() = false with working backends")
	}

	catalog.pingErr = errors.New("catalog down")
	if svc.IsReady(context.Background()) {
		t.Error("IsReady() = true with failing catalog")
	}

	catalog.pingErr = nil
	store.listErr = errors.New("storage down")
	if svc.IsReady(context.Background()) {
		t.Error("IsReady() = true with failing storage")
	}
}

func TestHealthServiceDetails(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	seedPair(t, store, catalog, "a.geojson")
	svc := NewHealthService(store, catalog)

	details := svc.GetHealthDetails(context.Background())

	if !details.Healthy || !details.Ready {
		t.Errorf("details = %+v, want healthy and ready", details)
	}
	if details.LayerCount != 1 {
		t.Errorf("LayerCount = %d, want 1", details.LayerCount)
	}
	if details.Components["catalog"] != "ok" || details.Components["storage"] != "ok" {
		t.Errorf("Components = %v, want all ok", details.Components)
	}
}

func TestHealthServiceDetailsDegraded(t *testing.T) {
	store := newMockPayloadStore()
	catalog := newMockCatalog()
	catalog.listErr = errors.New("catalog down")
	svc := NewHealthService(store, catalog)

	details := svc.GetHealthDetails(context.Background())

	if details.Ready {
		t.Error("Ready = true with failing catalog")
	}
	if details.Components["catalog"] != "unavailable" {
		t.Errorf("catalog component = %q, want unavailable", details.Components["catalog"])
	}
}
