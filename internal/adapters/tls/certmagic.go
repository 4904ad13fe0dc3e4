// Package tls terminates HTTPS for the layer service using CertMagic.
// Certificates are obtained via ACME, with an Azure DNS-01 solver so the
// service can sit behind a firewall that blocks inbound port 80.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"
)

// defaultCacheDir is where issued certificates are cached between runs,
// next to the payload and catalog data.
const defaultCacheDir = "./data/certs"

// Config holds TLS configuration.
type Config struct {
	Enabled  bool
	Domains  []string
	Email    string
	CacheDir string
	Staging  bool // Let's Encrypt staging CA, for issuance dry runs
	DNS      DNSConfig
}

// DNSConfig holds the Azure DNS zone used for DNS-01 challenges.
type DNSConfig struct {
	SubscriptionID    string
	ResourceGroupName string
	ClientID          string // User Assigned Managed Identity client ID (optional)
}

// Server serves the layer API over HTTPS with automatically managed
// certificates, or over plain HTTP when TLS is disabled.
type Server struct {
	config    Config
	handler   http.Handler
	logger    *slog.Logger
	tlsConfig *tls.Config
}

// NewServer creates a TLS-terminating server around handler. With TLS
// disabled the server still works, serving plain HTTP.
func NewServer(cfg Config, handler http.Handler, logger *slog.Logger) (*Server, error) {
	srv := &Server{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}

	if !cfg.Enabled {
		return srv, nil
	}

	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("tls: no domains configured")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("tls: no ACME account email configured")
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}
	srv.tlsConfig = tlsConfig

	return srv, nil
}

// buildTLSConfig wires CertMagic for the configured domains. CertMagic
// keeps global defaults; they are set here once, before any issuance.
func buildTLSConfig(cfg Config) (*tls.Config, error) {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = cfg.Email
	if cfg.Staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	certmagic.Default.Storage = &certmagic.FileStorage{Path: cacheDir}

	certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: &azure.Provider{
				SubscriptionId:    cfg.DNS.SubscriptionID,
				ResourceGroupName: cfg.DNS.ResourceGroupName,
				// Empty ClientId falls back to the system assigned identity.
				ClientId: cfg.DNS.ClientID,
			},
		},
	}

	return certmagic.TLS(cfg.Domains)
}

// ListenAndServe starts serving on addr, with TLS when enabled.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !s.config.Enabled {
		s.logger.Info("serving plain HTTP, TLS disabled", "address", addr)
		return server.ListenAndServe()
	}

	s.logger.Info("serving HTTPS",
		"address", addr,
		"domains", s.config.Domains,
	)
	server.TLSConfig = s.tlsConfig
	return server.ListenAndServeTLS("", "")
}

// Shutdown releases server resources. Certificate maintenance is owned by
// CertMagic and needs no teardown here.
func (s *Server) Shutdown(_ context.Context) error {
	return nil
}

// TLSConfig returns the TLS configuration, nil when TLS is disabled.
func (s *Server) TLSConfig() *tls.Config {
	return s.tlsConfig
}

// ManageCertificates obtains certificates for all configured domains up
// front, so the first HTTPS request does not pay the issuance latency.
func (s *Server) ManageCertificates(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.logger.Info("obtaining certificates", "domains", s.config.Domains)
	if err := certmagic.ManageSync(ctx, s.config.Domains); err != nil {
		return fmt.Errorf("tls: managing certificates: %w", err)
	}

	s.logger.Info("certificates ready")
	return nil
}
