package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeManual   = "manual"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type InvalidTLSModeError struct {
	Mode string
}

func (err InvalidTLSModeError) Error() string {
	return fmt.Sprintf("invalid tls mode: %q", err.Mode)
}

// Run serves handler until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	serve, err := s.serveFunc(srv)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- serve()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (s *Server) serveFunc(srv *http.Server) (func() error, error) {
	if !s.TLS.Enabled {
		slog.Info("server listening", "address", "http://"+srv.Addr)

		return srv.ListenAndServe, nil
	}

	switch s.TLS.Mode {
	case TLSModeAutoCert:
		if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
			return nil, errors.New("autocert requires at least one domain")
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
			Email:      s.TLS.AutoCert.Email,
		}

		srv.TLSConfig = manager.TLSConfig()

		slog.Info("server listening", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains))

		return func() error { return srv.ListenAndServeTLS("", "") }, nil
	case TLSModeManual:
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return nil, errors.New("manual tls requires a cert file and a key file")
		}

		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		slog.Info("server listening", "address", "https://"+srv.Addr)

		return func() error { return srv.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile) }, nil
	default:
		return nil, InvalidTLSModeError{Mode: s.TLS.Mode}
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
