package arachnid

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	"github.com/prometheus/client_golang/prometheus"
)

// Option is a functional option for configuring a [Toolkit] via [New].
type Option func(*options) error

type options struct {
	mode            throttle.Mode
	period          int
	maxWait         time.Duration
	wikiCeiling     int
	financeCeiling  int
	registerer      prometheus.Registerer
	logger          *slog.Logger
	clientOpts      []client.Option
	wikiEndpoint    string
	financeEndpoint string
	tldSource       string
}

// WithMode sets the starting mode of every source gate. Default is Block.
func WithMode(m throttle.Mode) Option {
	return func(o *options) error {
		o.mode = m
		return nil
	}
}

// WithPeriod sets the moving average age, in minutes, of every source gate.
func WithPeriod(minutes int) Option {
	return func(o *options) error {
		if minutes <= 0 {
			return fmt.Errorf("period[%d] %w", minutes, throttle.ErrMustNotBeZero)
		}
		o.period = minutes
		return nil
	}
}

// WithMaxWait caps how long a Block mode call waits. Zero waits without limit.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) error {
		o.maxWait = d
		return nil
	}
}

// WithWikiCeiling overrides the encyclopedia source's calls per minute ceiling.
func WithWikiCeiling(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("wiki ceiling[%d] %w", n, throttle.ErrMustNotBeZero)
		}
		o.wikiCeiling = n
		return nil
	}
}

// WithFinanceCeiling overrides the financial source's calls per minute ceiling.
func WithFinanceCeiling(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("finance ceiling[%d] %w", n, throttle.ErrMustNotBeZero)
		}
		o.financeCeiling = n
		return nil
	}
}

// WithRegisterer registers gate metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithClientOptions applies opts to the HTTP client of every source.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

// WithEndpoints overrides the source URLs. Empty values keep the defaults.
func WithEndpoints(wikiURL, financeURL, tldURL string) Option {
	return func(o *options) error {
		o.wikiEndpoint = wikiURL
		o.financeEndpoint = financeURL
		o.tldSource = tldURL
		return nil
	}
}
