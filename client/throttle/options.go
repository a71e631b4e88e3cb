package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option is a functional option for configuring a [Gate] via [New].
type Option func(*options) error

type options struct {
	mode        Mode
	counter     Counter
	period      int
	clock       Clock
	logger      *slog.Logger
	registerer  prometheus.Registerer
	initialWait time.Duration
	maxInterval time.Duration
	maxWait     time.Duration
}

// WithMode sets the gate's starting mode. The default is [Block].
func WithMode(m Mode) Option {
	return func(o *options) error {
		if m != Block && m != Fail {
			return fmt.Errorf("%d: %w", int32(m), ErrUnknownMode)
		}
		o.mode = m
		return nil
	}
}

// WithCounter replaces the default [EMACounter].
func WithCounter(c Counter) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("counter must not be nil")
		}
		o.counter = c
		return nil
	}
}

// WithPeriod sets the moving average age, in minutes, of the default counter.
func WithPeriod(minutes int) Option {
	return func(o *options) error {
		if minutes <= 0 {
			return fmt.Errorf("period[%d] %w", minutes, ErrMustNotBeZero)
		}
		o.period = minutes
		return nil
	}
}

// WithClock sets the time source for the default counter and for waits.
func WithClock(c Clock) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("clock must not be nil")
		}
		o.clock = c
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Gate].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithRegisterer registers the gate's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithBackoff sets the first and the longest single wait of a [Block] mode retry loop.
func WithBackoff(initial, longest time.Duration) Option {
	return func(o *options) error {
		if initial <= 0 || longest <= 0 {
			return fmt.Errorf("initial[%s] and longest[%s] %w", initial, longest, ErrMustNotBeZero)
		}
		if longest < initial {
			return fmt.Errorf("longest[%s] must not be shorter than initial[%s]", longest, initial)
		}
		o.initialWait = initial
		o.maxInterval = longest
		return nil
	}
}

// WithMaxWait caps the total time a [Block] mode caller waits. When the cap
// elapses the call is admitted even if the estimate is still over the
// ceiling. Zero, the default, waits without limit.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("max wait must not be negative")
		}
		o.maxWait = d
		return nil
	}
}
