package probe_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/arachnid/probe"
	"github.com/google/go-cmp/cmp"
)

// recordingDialer records every address dialed before delegating.
type recordingDialer struct {
	mu    sync.Mutex
	addrs []string
	next  probe.Dialer
}

func (d *recordingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.addrs = append(d.addrs, address)
	d.mu.Unlock()

	return d.next.DialContext(ctx, network, address)
}

func (d *recordingDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}

// hangingDialer blocks until the context ends.
type hangingDialer struct{}

func (hangingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func listen(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		t.Fatalf("closing listener: %v", err)
	}

	return port
}

func quiet() probe.Option {
	return probe.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpen(t *testing.T) {
	open := listen(t)
	closed := closedPort(t)

	testCases := map[string]struct {
		port int
		exp  bool
	}{
		"open":        {port: open, exp: true},
		"closed":      {port: closed, exp: false},
		"zeroPort":    {port: 0, exp: false},
		"portTooHigh": {port: 70000, exp: false},
	}

	p := probe.New(quiet())
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := p.Open(t.Context(), "127.0.0.1", tc.port, time.Second); got != tc.exp {
				t.Errorf("exp %t, got %t", tc.exp, got)
			}
		})
	}
}

func TestOpen_InvalidPortNeverDials(t *testing.T) {
	d := &recordingDialer{next: &net.Dialer{}}
	p := probe.New(probe.WithDialer(d), quiet())

	if p.Open(t.Context(), "127.0.0.1", -5, time.Second) {
		t.Error("exp closed for a negative port")
	}
	if got := d.dialed(); len(got) != 0 {
		t.Errorf("exp no dial, got %v", got)
	}
}

func TestOpen_Timeout(t *testing.T) {
	p := probe.New(probe.WithDialer(hangingDialer{}), quiet())

	start := time.Now()
	if p.Open(t.Context(), "192.0.2.1", 80, 50*time.Millisecond) {
		t.Fatal("exp closed after the timeout")
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("exp the probe to give up near its timeout, took %s", took)
	}
}

func TestOpen_ZeroTimeoutWaits(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	defer ln.Close()

	// Accept late. The handshake completes in the backlog meanwhile, so a
	// dial without deadline succeeds.
	go func() {
		time.Sleep(200 * time.Millisecond)
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	if !probe.New(quiet()).Open(t.Context(), "127.0.0.1", port, 0) {
		t.Error("exp open with no timeout")
	}
}

func TestOpen_ContextCancelled(t *testing.T) {
	p := probe.New(probe.WithDialer(hangingDialer{}), quiet())

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(20*time.Millisecond, cancel)

	if p.Open(ctx, "192.0.2.1", 80, 0) {
		t.Error("exp closed once the context is cancelled")
	}
}

func TestSequence(t *testing.T) {
	first, third := listen(t), listen(t)
	second := closedPort(t)

	d := &recordingDialer{next: &net.Dialer{}}
	p := probe.New(probe.WithDialer(d), quiet())

	failed, results := p.SequenceResults(t.Context(), "127.0.0.1", []int{first, second, third}, time.Second)
	if failed != second {
		t.Errorf("exp first failure on %d, got %d", second, failed)
	}

	// Every port is attempted even after the failure.
	exp := []string{
		probe.Target{Host: "127.0.0.1", Port: first}.Address(),
		probe.Target{Host: "127.0.0.1", Port: second}.Address(),
		probe.Target{Host: "127.0.0.1", Port: third}.Address(),
	}
	if diff := cmp.Diff(exp, d.dialed()); diff != "" {
		t.Errorf("unexpected dial order (-want +got):\n%s", diff)
	}

	gotOpen := make([]bool, len(results))
	for i, r := range results {
		gotOpen[i] = r.Open
	}
	if diff := cmp.Diff([]bool{true, false, true}, gotOpen); diff != "" {
		t.Errorf("unexpected outcomes (-want +got):\n%s", diff)
	}

	if got := p.Sequence(t.Context(), "127.0.0.1", []int{first, third}, time.Second); got != probe.AllReachable {
		t.Errorf("exp AllReachable, got %d", got)
	}
	if got := p.Sequence(t.Context(), "127.0.0.1", nil, time.Second); got != probe.AllReachable {
		t.Errorf("exp AllReachable for no ports, got %d", got)
	}
}

func TestResult_Equality(t *testing.T) {
	var tick atomic.Int64
	tick.Store(1_700_000_000_000)
	clock := func() time.Time { return time.UnixMilli(tick.Add(1)) }

	port := listen(t)
	p := probe.New(probe.WithClock(clock), quiet())

	a := p.Probe(t.Context(), "127.0.0.1", port, time.Second)
	b := p.Probe(t.Context(), "127.0.0.1", port, time.Second)

	if a.Address != b.Address || a.Open != b.Open {
		t.Fatalf("exp same address and outcome, got %+v and %+v", a, b)
	}
	if a == b {
		t.Error("results taken at different times must not be equal")
	}

	seen := map[probe.Result]int{a: 1}
	seen[b]++
	seen[a]++
	if len(seen) != 2 || seen[a] != 2 {
		t.Errorf("exp results usable as distinct map keys, got %v", seen)
	}

	if !a.Time().Equal(time.UnixMilli(a.Timestamp)) {
		t.Error("exp Time to match Timestamp")
	}
}

// limitDialer fails every dial while tracking concurrent dials.
type limitDialer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (d *limitDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(10 * time.Millisecond)

	return nil, errors.New("refused")
}

func TestProbeAll(t *testing.T) {
	open := listen(t)
	closed := closedPort(t)

	targets := []probe.Target{
		{Host: "127.0.0.1", Port: closed},
		{Host: "127.0.0.1", Port: open},
		{Host: "127.0.0.1", Port: 0},
	}

	results := probe.New(quiet()).ProbeAll(t.Context(), targets, time.Second, 0)
	if len(results) != len(targets) {
		t.Fatalf("exp %d results, got %d", len(targets), len(results))
	}

	for i, exp := range []bool{false, true, false} {
		if results[i].Address != targets[i].Address() {
			t.Errorf("result %d: exp address %s, got %s", i, targets[i].Address(), results[i].Address)
		}
		if results[i].Open != exp {
			t.Errorf("result %d: exp open %t, got %t", i, exp, results[i].Open)
		}
	}
}

func TestProbeAll_Limit(t *testing.T) {
	d := &limitDialer{}
	p := probe.New(probe.WithDialer(d), quiet())

	targets := make([]probe.Target, 12)
	for i := range targets {
		targets[i] = probe.Target{Host: "127.0.0.1", Port: 1000 + i}
	}

	results := p.ProbeAll(t.Context(), targets, time.Second, 3)
	for i, r := range results {
		if r.Open {
			t.Errorf("result %d: exp closed", i)
		}
	}

	if peak := d.peak.Load(); peak > 3 {
		t.Errorf("exp at most 3 probes in flight, saw %d", peak)
	}
}
