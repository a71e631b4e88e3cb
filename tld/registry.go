// Package tld validates top-level domains against the IANA list.
//
// A [Registry] starts empty. Refresh downloads the list and installs it as
// a new [Snapshot] in one swap: readers see either the previous snapshot or
// the complete new one, and a failed refresh leaves the previous one in
// place.
package tld

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adamwoolhether/arachnid/client"
)

// DefaultSource is IANA's authoritative list.
const DefaultSource = "https://data.iana.org/TLD/tlds-alpha-by-domain.txt"

// ErrRefreshFailed is returned when a refresh produced no usable list.
// The previous snapshot is kept and the refresh may be retried.
var ErrRefreshFailed = errors.New("tld refresh failed")

// Registry holds the current snapshot of the list.
//
// refreshMu serializes downloads. mu only guards the swap, so Reset and Load
// never wait behind a download in flight.
type Registry struct {
	refreshMu sync.Mutex
	mu        sync.Mutex
	snap      atomic.Pointer[Snapshot]
	c         *client.Client
	source    *url.URL
	logger    *slog.Logger
}

// New returns an empty Registry.
func New(optFns ...Option) (*Registry, error) {
	opts := options{source: DefaultSource}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying tld option: %w", err)
		}
	}

	source, err := url.Parse(opts.source)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}

	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	c, err := client.Build(append(opts.clientOpts, client.WithLogger(logger))...)
	if err != nil {
		return nil, fmt.Errorf("building http client: %w", err)
	}

	return &Registry{
		c:      c,
		source: source,
		logger: logger,
	}, nil
}

// Refresh downloads the list and installs it. It returns the new version,
// or "" and an error wrapping ErrRefreshFailed, in which case the previous
// snapshot stays installed. Concurrent refreshes run one at a time.
func (r *Registry) Refresh(ctx context.Context) (string, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	var snap *Snapshot
	decode := func(body io.Reader) error {
		s, err := Parse(body)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}

	if err := r.c.Get(ctx, r.source, http.StatusOK, client.WithDecoder(decode)); err != nil {
		r.logger.Warn("tld refresh failed, keeping previous list", "source", r.source.String(), "error", err)
		return "", refreshFailed(err)
	}

	return r.install(snap), nil
}

// Load installs the list read from src, as Refresh does for a download.
func (r *Registry) Load(src io.Reader) (string, error) {
	snap, err := Parse(src)
	if err != nil {
		return "", refreshFailed(err)
	}

	return r.install(snap), nil
}

// install publishes a fully parsed snap.
func (r *Registry) install(snap *Snapshot) string {
	r.mu.Lock()
	r.snap.Store(snap)
	r.mu.Unlock()

	r.logger.Info("tld list installed", "version", snap.Version(), "domains", snap.Len())

	return snap.Version()
}

// Reset drops the current snapshot, leaving the registry empty.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.Store(nil)
}

// Snapshot returns the current snapshot, or nil while the registry is empty.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Version returns the version of the current snapshot. ok is false while
// the registry is empty.
func (r *Registry) Version() (version string, ok bool) {
	snap := r.snap.Load()
	if snap == nil {
		return "", false
	}

	return snap.Version(), true
}

// Contains reports whether tld is in the current snapshot.
func (r *Registry) Contains(tld string) bool {
	snap := r.snap.Load()
	return snap != nil && snap.Contains(tld)
}

// Len returns the number of domains in the current snapshot.
func (r *Registry) Len() int {
	snap := r.snap.Load()
	if snap == nil {
		return 0
	}

	return snap.Len()
}

// ValidHost reports whether the last label of host is a known TLD.
func (r *Registry) ValidHost(host string) bool {
	label := lastLabel(host)
	if label == "" {
		return false
	}

	return r.Contains(label)
}

// Run refreshes the list now and then every interval until ctx is done.
// Failed refreshes are logged and retried on the next tick.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be greater than zero")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("scheduled tld refresh", "error", err, "retry_in", interval.String())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func refreshFailed(err error) error {
	if errors.Is(err, ErrRefreshFailed) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
}

func lastLabel(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}

	return host
}
