package exporter_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/arachnid/internal/exporter"
	"github.com/prometheus/client_golang/prometheus"
)

func TestExporter_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	calls := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_calls_total", Help: "calls"})
	reg.MustRegister(calls)
	calls.Add(3)

	e := exporter.New("127.0.0.1:0", reg, exporter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(t.Context())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("exporter exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("exporter never became ready")
	}

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("scraping: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	if !strings.Contains(string(body), "test_calls_total 3") {
		t.Errorf("expected the counter in the scrape, got:\n%s", body)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected a clean shutdown, got: %v", err)
	}
}

func TestExporter_RunBadAddr(t *testing.T) {
	e := exporter.New("256.0.0.1:bad", prometheus.NewRegistry())
	if err := e.Run(t.Context(), nil); err == nil {
		t.Fatal("expected a listen error")
	}
}
