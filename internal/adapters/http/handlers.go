package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mhollberg/strata/internal/application"
	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/input"
)

// uploadRequest is the POST /layers request body. Properties is a pointer
// so a missing field can be told apart from an explicit empty list, which
// asks the server to derive the popup keys from the payload.
type uploadRequest struct {
	Name           string          `json:"name"`
	Filename       string          `json:"filename"`
	Properties     *[]string       `json:"properties"`
	GeojsonContent json.RawMessage `json:"geojsonContent"`
}

// deleteRequest is the DELETE /layers request body.
type deleteRequest struct {
	ID string `json:"id"`
}

// handleListLayers returns all cataloged layers, most recent first.
func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	records, err := s.layers.List(r.Context())
	if err != nil {
		s.logger.Error("listing layers failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch layers")
		return
	}

	if records == nil {
		records = []domain.LayerRecord{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Fetched GeoJSON",
		"geo":     records,
	})
}

// handleUploadLayer stores a payload and catalogs it.
func (s *Server) handleUploadLayer(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Payload exceeds the upload size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.Filename == "" || req.Properties == nil {
		s.writeError(w, http.StatusBadRequest, "name, filename, properties and geojsonContent are required")
		return
	}
	if len(req.GeojsonContent) == 0 {
		s.writeError(w, http.StatusBadRequest, "geojsonContent is required")
		return
	}

	result, err := s.layers.Upload(r.Context(), input.UploadRequest{
		Name:       req.Name,
		Filename:   req.Filename,
		Properties: *req.Properties,
		Content:    req.GeojsonContent,
	})
	if err != nil {
		s.handleLayerError(w, err)
		return
	}

	response := map[string]interface{}{
		"message": "GeoJSON uploaded successfully",
		"id":      result.ID,
	}
	if result.Warning != "" {
		response["warning"] = result.Warning
	}
	s.writeJSON(w, http.StatusCreated, response)
}

// handleDeleteLayer archives a payload and removes its record.
func (s *Server) handleDeleteLayer(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.layers.Delete(r.Context(), req.ID); err != nil {
		s.handleLayerError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "GeoJSON deleted successfully",
		"id":      req.ID,
	})
}

// handlePayload streams a stored payload byte-for-byte.
func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	if !domain.SafeFilename(filename) {
		s.writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	reader, err := s.store.GetReader(r.Context(), filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Payload not found")
			return
		}
		s.logger.Error("reading payload failed", "filename", filename, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to read payload")
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("streaming payload failed", "filename", filename, "error", err)
	}
}

// handleTileProviders returns the base tile layer registry.
func (s *Server) handleTileProviders(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.providers,
		"default":   s.viewer.BaseLayer,
	})
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":      boolToStatus(details.Healthy),
		"ready":       details.Ready,
		"layer_count": details.LayerCount,
		"components":  details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleReconcile handles the reconcile trigger endpoint.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		s.writeError(w, http.StatusNotFound, "Reconciler not available")
		return
	}

	result, err := s.reconciler.TriggerReconcile(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("reconcile failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Reconcile failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := openAPISpecJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleLayerError maps service errors to HTTP status codes.
func (s *Server) handleLayerError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Layer not found")
		return
	}

	s.logger.Error("layer operation failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "Server error")
}

// isBodyTooLarge reports whether a decode error was caused by the body
// size cap.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
