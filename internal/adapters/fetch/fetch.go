// Package fetch provides payload fetchers for the layer loader.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// HTTPFetcher fetches payloads from a payload endpoint over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// HTTPConfig holds HTTP fetcher configuration.
type HTTPConfig struct {
	BaseURL  string // e.g. http://localhost:8080/data/geojson
	Timeout  time.Duration
	Username string
	Password string
}

// NewHTTPFetcher creates a new HTTP payload fetcher.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Fetch downloads the payload for the given filename.
func (f *HTTPFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	if !domain.SafeFilename(filename) {
		return nil, &domain.ValidationError{
			Field:      "filename",
			Value:      filename,
			Constraint: "plain filename",
			Message:    "filename must not contain path separators",
		}
	}

	payloadURL := f.baseURL + "/" + url.PathEscape(filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payloadURL, nil)
	if err != nil {
		return nil, &domain.FetchError{Filename: filename, Err: err}
	}

	if f.username != "" && f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Filename: filename, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{Filename: filename, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Filename: filename, Err: err}
	}

	return data, nil
}

// StoreFetcher fetches payloads straight from a payload store. Used when
// the loader runs in the same process as the store.
type StoreFetcher struct {
	store output.PayloadStore
}

// NewStoreFetcher creates a fetcher backed by a payload store.
func NewStoreFetcher(store output.PayloadStore) *StoreFetcher {
	return &StoreFetcher{store: store}
}

// Fetch reads the payload for the given filename from the store.
func (f *StoreFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	reader, err := f.store.GetReader(ctx, filename)
	if err != nil {
		return nil, &domain.FetchError{Filename: filename, Err: err}
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &domain.FetchError{Filename: filename, Err: fmt.Errorf("reading payload: %w", err)}
	}

	return data, nil
}
