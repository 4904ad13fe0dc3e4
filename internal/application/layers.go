// Package application contains the application services.
package application

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/input"
	"github.com/mhollberg/strata/internal/ports/output"
)

// LayerManager implements the LayerService port. It composes the payload
// store and the layer catalog: the payload is always written before the
// record exists, and archived before the record is removed.
type LayerManager struct {
	store   output.PayloadStore
	catalog output.LayerCatalog
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewLayerManager creates a new layer manager.
func NewLayerManager(
	store output.PayloadStore,
	catalog output.LayerCatalog,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *LayerManager {
	return &LayerManager{
		store:   store,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
	}
}

// Upload validates and persists a payload, then catalogs it. When the
// request does not name property keys they are derived from the first
// feature, in the order the document declares them.
func (s *LayerManager) Upload(ctx context.Context, req input.UploadRequest) (*input.UploadResult, error) {
	if !domain.SafeFilename(req.Filename) {
		s.metrics.IncUploadCount(false)
		return nil, &domain.ValidationError{
			Field:      "filename",
			Value:      req.Filename,
			Constraint: "plain filename",
			Message:    "filename must not contain path separators",
		}
	}

	info, err := domain.ValidatePayload(req.Content)
	if err != nil {
		s.metrics.IncUploadCount(false)
		return nil, err
	}

	properties := req.Properties
	if len(properties) == 0 {
		properties = info.PropertyKeys
	}

	rec := domain.LayerRecord{
		Name:       req.Name,
		Filename:   req.Filename,
		Properties: properties,
	}
	if err := rec.Validate(); err != nil {
		s.metrics.IncUploadCount(false)
		return nil, err
	}

	start := time.Now()
	err = s.store.Save(ctx, req.Filename, bytes.NewReader(req.Content))
	s.metrics.ObserveStorageDuration("save", time.Since(start))
	s.metrics.IncStorageOperations("save", err == nil)
	if err != nil {
		s.metrics.IncUploadCount(false)
		return nil, err
	}

	id, err := s.catalog.Create(ctx, rec)
	if err != nil {
		// The payload is already on disk. It stays there as an orphan
		// until the reconciler surfaces it.
		s.logger.Error("catalog create failed after payload save",
			"filename", req.Filename, "error", err)
		s.metrics.IncUploadCount(false)
		return nil, err
	}

	s.logger.Info("layer uploaded",
		"id", id,
		"name", req.Name,
		"filename", req.Filename,
		"features", info.FeatureCount,
	)
	if info.Warning != "" {
		s.logger.Warn("upload accepted with advisory",
			"filename", req.Filename, "warning", info.Warning)
	}
	s.metrics.IncUploadCount(true)

	return &input.UploadResult{ID: id, Warning: info.Warning}, nil
}

// List returns all cataloged layers, most recent first.
func (s *LayerManager) List(ctx context.Context) ([]domain.LayerRecord, error) {
	records, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	domain.SortRecordsNewestFirst(records)
	s.metrics.SetLayerCount(len(records))
	return records, nil
}

// Delete archives the payload and removes the catalog record, strictly in
// that order. An archive failure keeps the record so the layer is never
// half-deleted in the direction of data loss.
func (s *LayerManager) Delete(ctx context.Context, id string) error {
	rec, err := s.catalog.FindByID(ctx, id)
	if err != nil {
		s.metrics.IncDeleteCount(false)
		return err
	}

	start := time.Now()
	err = s.store.ArchiveAndDelete(ctx, rec.Filename)
	s.metrics.ObserveStorageDuration("archive", time.Since(start))
	s.metrics.IncStorageOperations("archive", err == nil)
	if err != nil {
		s.metrics.IncDeleteCount(false)
		return err
	}

	if err := s.catalog.DeleteByID(ctx, id); err != nil {
		s.metrics.IncDeleteCount(false)
		return err
	}

	s.logger.Info("layer deleted", "id", id, "filename", rec.Filename)
	s.metrics.IncDeleteCount(true)
	return nil
}
