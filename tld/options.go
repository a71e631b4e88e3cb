package tld

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/arachnid/client"
)

// Option is a functional option for configuring a [Registry] via [New].
type Option func(*options) error

type options struct {
	source     string
	clientOpts []client.Option
	logger     *slog.Logger
}

// WithSource replaces the URL the list is downloaded from.
func WithSource(rawURL string) Option {
	return func(o *options) error {
		if rawURL == "" {
			return errors.New("source must not be empty")
		}
		o.source = rawURL
		return nil
	}
}

// WithClientOptions passes options through to the underlying HTTP client.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
