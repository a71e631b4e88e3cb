package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Gate admits calls to one external source against a calls-per-minute
// ceiling. A Gate is safe for concurrent use and is meant to live as long
// as the client of the source it guards.
type Gate struct {
	name    string
	ceiling int
	mode    atomic.Int32
	counter Counter
	clock   Clock
	logger  *slog.Logger
	metrics *metrics

	initialWait time.Duration
	maxInterval time.Duration
	maxWait     time.Duration

	warn rate.Sometimes
}

// New returns a Gate for the named source. ceiling is the highest
// estimated calls per minute at which calls are still admitted.
func New(name string, ceiling int, optFns ...Option) (*Gate, error) {
	if ceiling <= 0 {
		return nil, fmt.Errorf("ceiling[%d] %w", ceiling, ErrMustNotBeZero)
	}

	opts := options{
		mode:        Block,
		period:      DefaultPeriod,
		initialWait: time.Second,
		maxInterval: 30 * time.Second,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying gate option: %w", err)
		}
	}

	g := &Gate{
		name:        name,
		ceiling:     ceiling,
		counter:     opts.counter,
		clock:       opts.clock,
		logger:      opts.logger,
		initialWait: opts.initialWait,
		maxInterval: opts.maxInterval,
		maxWait:     opts.maxWait,
		warn:        rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	g.mode.Store(int32(opts.mode))

	if g.clock == nil {
		g.clock = SystemClock()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.counter == nil {
		c, err := NewEMACounter(opts.period, g.clock)
		if err != nil {
			return nil, fmt.Errorf("building counter: %w", err)
		}
		g.counter = c
	}

	m, err := newMetrics(g, opts.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering gate metrics: %w", err)
	}
	g.metrics = m

	return g, nil
}

// BeforeCall decides whether a call may go ahead. It returns nil once the
// call is admitted. In Fail mode an estimate over the ceiling returns an
// error wrapping ErrRateLimitExceeded. In Block mode the caller waits until
// the estimate drops, the optional max wait elapses, or ctx ends.
func (g *Gate) BeforeCall(ctx context.Context) error {
	mode := g.Mode()

	estimate := g.counter.Poll()
	if estimate <= float64(g.ceiling) {
		g.metrics.admitted.Inc()
		return nil
	}

	g.warn.Do(func() {
		g.logger.Warn("throttle ceiling exceeded", "source", g.name, "estimate", estimate, "ceiling", g.ceiling, "mode", mode.String())
	})

	if mode == Fail {
		g.metrics.rejected.Inc()
		return fmt.Errorf("%s: estimate %.1f/min over ceiling %d/min: %w", g.name, estimate, g.ceiling, ErrRateLimitExceeded)
	}

	return g.wait(ctx, estimate)
}

// wait is the Block mode retry loop. The counter lock is only taken inside
// Poll, never across a sleep.
func (g *Gate) wait(ctx context.Context, estimate float64) error {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     g.initialWait,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         g.maxInterval,
		MaxElapsedTime:      g.maxWait,
		Stop:                backoff.Stop,
		Clock:               g.clock,
	}
	bo.Reset()

	start := g.clock.Now()
	defer func() {
		g.metrics.waited.Observe(g.clock.Now().Sub(start).Seconds())
	}()

	for estimate > float64(g.ceiling) {
		next := bo.NextBackOff()
		if next == backoff.Stop {
			g.logger.Warn("throttle max wait elapsed, admitting call", "source", g.name, "estimate", estimate, "ceiling", g.ceiling, "waited", g.clock.Now().Sub(start).String())
			break
		}

		if err := g.clock.Sleep(ctx, next); err != nil {
			return fmt.Errorf("%s: throttle wait: %w", g.name, err)
		}

		estimate = g.counter.Poll()
	}

	g.logger.Debug("throttle wait complete", "source", g.name, "waited", g.clock.Now().Sub(start).String(), "estimate", estimate)
	g.metrics.admitted.Inc()

	return nil
}

// AfterCall records one call against the source. Call it exactly once for
// every admitted call, whether or not the call itself succeeded.
func (g *Gate) AfterCall() {
	g.counter.Tick()
}

// Do runs fn between BeforeCall and AfterCall.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.BeforeCall(ctx); err != nil {
		return err
	}
	defer g.AfterCall()

	return fn(ctx)
}

// SetMode switches the gate's mode for calls made after it returns.
// Callers already waiting keep the mode they entered with.
func (g *Gate) SetMode(m Mode) {
	g.mode.Store(int32(m))
}

// Mode reports the current mode.
func (g *Gate) Mode() Mode {
	return Mode(g.mode.Load())
}

// Ceiling reports the configured calls per minute ceiling.
func (g *Gate) Ceiling() int {
	return g.ceiling
}

// Estimate reports the counter's current calls per minute estimate.
func (g *Gate) Estimate() float64 {
	return g.counter.Poll()
}

// Name reports the source name the gate was built with.
func (g *Gate) Name() string {
	return g.name
}
