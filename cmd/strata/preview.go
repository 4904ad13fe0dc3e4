package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhollberg/strata/internal/adapters/fetch"
	"github.com/mhollberg/strata/internal/adapters/view"
	"github.com/mhollberg/strata/internal/application"
	"github.com/mhollberg/strata/internal/ports/output"
)

var (
	previewServer    string
	previewBaseLayer string
	previewTimeout   time.Duration
)

var previewCmd = &cobra.Command{
	Use:   "preview <filename>",
	Short: "Fetch a layer and print what a map client would render",
	Long: `Preview fetches a stored payload from a running server, builds the
overlay the same way a map client does, and prints the resulting
viewport and feature inspector rows.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewServer, "server", "http://localhost:8080", "server base URL")
	previewCmd.Flags().StringVar(&previewBaseLayer, "base-layer", "osm", "base tile layer id")
	previewCmd.Flags().DurationVar(&previewTimeout, "timeout", 30*time.Second, "fetch timeout")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(_ *cobra.Command, args []string) error {
	filename := args[0]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// The factory builds a fresh view per mount; a closed view is never
	// handed out again.
	var headless *view.Headless
	sync := application.NewViewSynchronizer(
		func() output.MapView {
			headless = view.NewHeadless(logger)
			return headless
		},
		nil,
		view.NewLogSink(logger),
		logger,
		application.ViewConfig{BaseLayer: previewBaseLayer},
	)
	sync.Mount()
	defer sync.Unmount()

	fetcher := fetch.NewHTTPFetcher(fetch.HTTPConfig{
		BaseURL: previewServer + "/data/geojson",
		Timeout: previewTimeout,
	})
	loader := application.NewLayerLoader(fetcher, sync, &output.NoOpMetrics{}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
	defer cancel()

	loader.Select(ctx, filename)
	loader.Wait()

	state := loader.State()
	if state.Phase == application.PhaseFailed {
		return fmt.Errorf("loading %s: %w", filename, state.Err)
	}

	overlay := headless.Overlay()
	if overlay == nil {
		return fmt.Errorf("no overlay rendered for %s", filename)
	}

	fmt.Printf("Layer:      %s\n", overlay.Filename)
	fmt.Printf("Features:   %d\n", len(overlay.Collection.Features))
	fmt.Printf("Base layer: %s\n", headless.BaseLayer().ID)

	center, zoom, fitted := headless.Viewport()
	if fitted != nil {
		fmt.Printf("Viewport:   fit [%.4f, %.4f] - [%.4f, %.4f]\n",
			fitted.SouthWest.Lat, fitted.SouthWest.Lng,
			fitted.NorthEast.Lat, fitted.NorthEast.Lng)
	} else {
		fmt.Printf("Viewport:   center [%.4f, %.4f] zoom %d\n", center.Lat, center.Lng, zoom)
	}

	for i, entries := range overlay.Inspectors {
		if len(entries) == 0 {
			continue
		}
		fmt.Printf("\nFeature %d:\n", i)
		for _, e := range entries {
			fmt.Printf("  %s: %s\n", e.Key, e.Value)
		}
	}

	return nil
}
