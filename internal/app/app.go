// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mhollberg/strata/internal/adapters/catalog"
	httpAdapter "github.com/mhollberg/strata/internal/adapters/http"
	"github.com/mhollberg/strata/internal/adapters/metrics"
	"github.com/mhollberg/strata/internal/adapters/storage"
	tlsAdapter "github.com/mhollberg/strata/internal/adapters/tls"
	"github.com/mhollberg/strata/internal/adapters/watcher"
	"github.com/mhollberg/strata/internal/application"
	"github.com/mhollberg/strata/internal/config"
	"github.com/mhollberg/strata/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Store         output.PayloadStore
	Catalog       *catalog.SQLiteCatalog
	LayerManager  *application.LayerManager
	HealthService *application.HealthService
	Reconciler    *application.Reconciler
	HTTPServer    *httpAdapter.Server
	TLSServer     *tlsAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	var metricsCollector output.MetricsCollector
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("strata")
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	// Initialize payload store
	store, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Store = store

	// Initialize layer catalog
	cat, err := catalog.NewSQLiteCatalog(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing catalog: %w", err)
	}
	app.Catalog = cat

	// Initialize layer manager
	app.LayerManager = application.NewLayerManager(
		app.Store,
		app.Catalog,
		metricsCollector,
		logger,
	)

	// Initialize health service
	app.HealthService = application.NewHealthService(app.Store, app.Catalog)

	// Initialize reconciler
	if cfg.Reconcile.Enabled {
		app.Reconciler = application.NewReconciler(
			app.Store,
			app.Catalog,
			metricsCollector,
			cfg.Reconcile.Interval,
			logger,
		)
	}

	// Initialize HTTP server
	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		cfg.Viewer,
		app.LayerManager,
		app.Store,
		app.HealthService,
		app.Reconciler,
		logger,
	)

	if app.Metrics != nil {
		app.HTTPServer.WithMetrics(metrics.Handler(), app.Metrics.Middleware)
	}

	// Initialize TLS server if enabled
	if cfg.TLS.Enabled {
		tlsServer, err := tlsAdapter.NewServer(
			tlsAdapter.Config{
				Enabled:  cfg.TLS.Enabled,
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
				DNS: tlsAdapter.DNSConfig{
					SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
					ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
					ClientID:          cfg.TLS.DNS.ClientID,
				},
			},
			app.HTTPServer.Router(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLSServer = tlsServer
	}

	// Watch the payload directory so out-of-band file changes show up in
	// the next reconcile run.
	if cfg.Storage.Type == "local" && cfg.Watcher.Enabled && app.Reconciler != nil {
		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{cfg.Storage.LocalPath},
				Debounce: cfg.Watcher.Debounce,
			},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	if a.Reconciler != nil {
		a.Reconciler.Start(ctx)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.Config.TLS.Enabled && a.TLSServer != nil {
		return a.TLSServer.ListenAndServe(a.Config.Server.Address())
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if a.Reconciler != nil {
		a.Reconciler.Stop()
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	if a.Catalog != nil {
		if err := a.Catalog.Close(); err != nil {
			a.Logger.Error("catalog close error", "error", err)
		}
	}

	return nil
}

// handleFileEvent reacts to payload directory changes. The reconciler
// surfaces whatever the change produced; nothing is repaired here.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("payload file event",
		"path", event.Path,
		"operation", event.Operation.String(),
	)

	result, err := a.Reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}

	if len(result.OrphanedPayloads) > 0 || len(result.DanglingRecords) > 0 {
		a.Logger.Warn("reconcile after file event found inconsistencies",
			"orphaned_payloads", len(result.OrphanedPayloads),
			"dangling_records", len(result.DanglingRecords),
		)
	}
	return nil
}

// initStorage initializes the appropriate payload store.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.PayloadStore, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStore(cfg.LocalPath, cfg.ArchivePath), nil

	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			ArchivePrefix:   cfg.S3.ArchivePrefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStore(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
			ArchivePrefix:    cfg.Azure.ArchivePrefix,
		})

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
