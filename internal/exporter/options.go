package exporter

import (
	"log/slog"
	"time"
)

// Option configures an Exporter.
type Option func(*options)

type options struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// WithShutdownTimeout bounds how long Run waits for in-flight scrapes
// after its context ends. Default is 5s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}
