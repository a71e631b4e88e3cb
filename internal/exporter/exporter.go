// Package exporter serves prometheus metrics for the lifetime of a command.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter wraps an [http.Server] serving /metrics, shut down with the
// context passed to Run.
type Exporter struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates an Exporter for the metrics gathered by g.
func New(addr string, g prometheus.Gatherer, opts ...Option) *Exporter {
	o := options{
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(o.logger.Handler(), slog.LevelError),
	}))

	return &Exporter{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		shutdownTimeout: o.shutdownTimeout,
		logger:          o.logger,
	}
}

// Run listens and serves until ctx is done, then shuts down gracefully.
// ready, if not nil, receives the bound address once listening.
func (e *Exporter) Run(ctx context.Context, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", e.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", e.srv.Addr, err)
	}

	serverErrs := make(chan error, 1)
	go func() {
		e.logger.Info("metrics exporter started", "addr", ln.Addr().String())
		serverErrs <- e.srv.Serve(ln)
	}()

	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics exporter: %w", err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
		defer cancel()

		if err := e.srv.Shutdown(shutdownCtx); err != nil {
			_ = e.srv.Close()
			return fmt.Errorf("metrics exporter didn't stop gracefully: %w", err)
		}

		e.logger.Info("metrics exporter stopped")

		return nil
	}
}
