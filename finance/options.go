package finance

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/arachnid/client"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error

type options struct {
	endpoint   string
	clientOpts []client.Option
	logger     *slog.Logger
}

// WithEndpoint replaces the download API base URL.
func WithEndpoint(rawURL string) Option {
	return func(o *options) error {
		if rawURL == "" {
			return errors.New("endpoint must not be empty")
		}
		o.endpoint = rawURL
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
