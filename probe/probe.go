// Package probe checks whether TCP endpoints accept connections.
//
// A refused, unreachable or timed out connection is a normal outcome, so
// probes report booleans rather than errors.
package probe

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// AllReachable is returned by Sequence when every port accepted a connection.
const AllReachable = -1

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Result is the outcome of one probe. It is comparable, and two results are
// equal only if they were taken at the same millisecond.
type Result struct {
	Address   string `json:"address"`
	Open      bool   `json:"open"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the moment the probe finished.
func (r Result) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Target is one host and port to probe.
type Target struct {
	Host string
	Port int
}

// Address joins the target's host and port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Prober runs probes. The zero value is not usable, use [New].
type Prober struct {
	dialer Dialer
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Prober.
func New(optFns ...Option) *Prober {
	p := Prober{
		dialer: &net.Dialer{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range optFns {
		opt(&p)
	}

	return &p
}

var defaultProber = New()

// Open reports whether host accepts a TCP connection on port within
// timeout. A zero timeout waits as long as the dial takes.
func (p *Prober) Open(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if port < 1 || port > 65535 {
		p.logger.Debug("probe skipped, invalid port", "host", host, "port", port)
		return false
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	addr := Target{Host: host, Port: port}.Address()

	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		p.logger.Debug("probe closed", "address", addr, "error", err)
		return false
	}

	if err := conn.Close(); err != nil {
		p.logger.Debug("probe close", "address", addr, "error", err)
	}

	return true
}

// Probe is Open with the outcome stamped into a Result.
func (p *Prober) Probe(ctx context.Context, host string, port int, timeout time.Duration) Result {
	open := p.Open(ctx, host, port, timeout)

	return Result{
		Address:   Target{Host: host, Port: port}.Address(),
		Open:      open,
		Timestamp: p.now().UnixMilli(),
	}
}

// Sequence probes every port of host in order and returns the first port
// that was not open, or AllReachable. Ports after the first failure are
// still probed.
func (p *Prober) Sequence(ctx context.Context, host string, ports []int, timeout time.Duration) int {
	failed, _ := p.SequenceResults(ctx, host, ports, timeout)

	return failed
}

// SequenceResults is Sequence that also returns every probe's Result, in
// port order.
func (p *Prober) SequenceResults(ctx context.Context, host string, ports []int, timeout time.Duration) (int, []Result) {
	failed := AllReachable
	results := make([]Result, 0, len(ports))

	for _, port := range ports {
		r := p.Probe(ctx, host, port, timeout)
		results = append(results, r)

		if failed == AllReachable && !r.Open {
			failed = port
		}
	}

	return failed, results
}

// ProbeAll probes targets concurrently, at most limit at a time, and
// returns their results in target order. A limit of zero or less means
// no limit.
func (p *Prober) ProbeAll(ctx context.Context, targets []Target, timeout time.Duration, limit int) []Result {
	results := make([]Result, len(targets))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, t := range targets {
		g.Go(func() error {
			results[i] = p.Probe(ctx, t.Host, t.Port, timeout)
			return nil
		})
	}

	_ = g.Wait() // probes never fail

	return results
}

// Open probes with the default Prober.
func Open(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return defaultProber.Open(ctx, host, port, timeout)
}

// Probe probes with the default Prober.
func Probe(ctx context.Context, host string, port int, timeout time.Duration) Result {
	return defaultProber.Probe(ctx, host, port, timeout)
}

// Sequence probes with the default Prober.
func Sequence(ctx context.Context, host string, ports []int, timeout time.Duration) int {
	return defaultProber.Sequence(ctx, host, ports, timeout)
}

// SequenceResults probes with the default Prober.
func SequenceResults(ctx context.Context, host string, ports []int, timeout time.Duration) (int, []Result) {
	return defaultProber.SequenceResults(ctx, host, ports, timeout)
}

// ProbeAll probes with the default Prober.
func ProbeAll(ctx context.Context, targets []Target, timeout time.Duration, limit int) []Result {
	return defaultProber.ProbeAll(ctx, targets, timeout, limit)
}
