// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mhollberg/strata/internal/application"
	"github.com/mhollberg/strata/internal/config"
	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/input"
	"github.com/mhollberg/strata/internal/ports/output"
)

// Server wraps the HTTP server with application handlers.
type Server struct {
	server     *http.Server
	router     *mux.Router
	layers     input.LayerService
	store      output.PayloadStore
	health     input.HealthChecker
	reconciler *application.Reconciler
	providers  []domain.TileProvider
	logger     *slog.Logger
	config     config.ServerConfig
	viewer     config.ViewerConfig

	metricsHandler    http.Handler
	metricsMiddleware mux.MiddlewareFunc
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg config.ServerConfig,
	viewerCfg config.ViewerConfig,
	layers input.LayerService,
	store output.PayloadStore,
	health input.HealthChecker,
	reconciler *application.Reconciler,
	logger *slog.Logger,
) *Server {
	s := &Server{
		layers:     layers,
		store:      store,
		health:     health,
		reconciler: reconciler,
		providers:  domain.DefaultTileProviders(),
		logger:     logger,
		config:     cfg,
		viewer:     viewerCfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// WithMetrics attaches the Prometheus handler and request middleware. Must
// be called before Router or Start.
func (s *Server) WithMetrics(handler http.Handler, middleware mux.MiddlewareFunc) *Server {
	s.metricsHandler = handler
	s.metricsMiddleware = middleware
	s.router = s.setupRoutes()
	s.server.Handler = s.router
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metricsMiddleware != nil {
		r.Use(s.metricsMiddleware)
	}
	r.Use(s.maxBodyMiddleware)

	// Add CORS middleware if configured
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	// Layer management
	r.HandleFunc("/layers", s.handleListLayers).Methods(http.MethodGet)
	r.HandleFunc("/layers", s.handleUploadLayer).Methods(http.MethodPost)
	r.HandleFunc("/layers", s.handleDeleteLayer).Methods(http.MethodDelete)

	// Stored payloads, served byte-for-byte
	r.HandleFunc("/data/geojson/{filename}", s.handlePayload).Methods(http.MethodGet)

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tiles", s.handleTileProviders).Methods(http.MethodGet)

	// Reconcile endpoint (only if reconciler is configured)
	if s.reconciler != nil {
		api.HandleFunc("/reconcile", s.handleReconcile).Methods(http.MethodPost)
	}

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)
	r.HandleFunc("/swagger", s.handleSwaggerUI).Methods(http.MethodGet)

	// Prometheus metrics
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	// Embedded map viewer (if enabled)
	if s.config.ViewerEnabled {
		r.HandleFunc("/", s.handleViewer).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// maxBodyMiddleware caps request bodies at the configured upload limit.
// Reads past the cap fail, which json decoding surfaces as a MaxBytesError.
func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && s.config.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
