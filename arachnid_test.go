package arachnid_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/arachnid"
	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	"github.com/adamwoolhether/arachnid/finance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sources(t *testing.T) (wikiURL, financeURL, tldURL string) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["go",["Go"]]`)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Date,Open,High,Low,Close,Adj Close,Volume\n2021-01-19,1,2,0.5,1.5,1.5,10\n")
	})
	mux.HandleFunc("/tlds.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# v1\nCOM\nORG\n")
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts.URL + "/w/api.php", ts.URL + "/download", ts.URL + "/tlds.txt"
}

func TestNew(t *testing.T) {
	wikiURL, financeURL, tldURL := sources(t)
	reg := prometheus.NewRegistry()

	tk, err := arachnid.New(
		arachnid.WithLogger(quietLogger()),
		arachnid.WithRegisterer(reg),
		arachnid.WithWikiCeiling(2),
		arachnid.WithFinanceCeiling(1),
		arachnid.WithPeriod(1),
		arachnid.WithMode(throttle.Fail),
		arachnid.WithClientOptions(client.WithTimeout(5*time.Second)),
		arachnid.WithEndpoints(wikiURL, financeURL, tldURL),
	)
	if err != nil {
		t.Fatalf("building toolkit: %v", err)
	}

	ctx := t.Context()

	if _, err := tk.Wiki.Suggestions(ctx, "go"); err != nil {
		t.Fatalf("suggestions: %v", err)
	}

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	for range 2 {
		if _, err := tk.Finance.History(ctx, "X", from, to, finance.Daily); err != nil {
			t.Fatalf("history: %v", err)
		}
	}

	// The finance gate is full, the wiki gate is not: gates are independent.
	if _, err := tk.Finance.History(ctx, "X", from, to, finance.Daily); !errors.Is(err, arachnid.ErrRateLimitExceeded) {
		t.Fatalf("exp finance rejected, got: %v", err)
	}
	if _, err := tk.Wiki.Suggestions(ctx, "go"); err != nil {
		t.Fatalf("exp wiki admitted, got: %v", err)
	}

	gates := tk.Gates()
	if gates["wiki"].Ceiling() != 2 || gates["finance"].Ceiling() != 1 {
		t.Errorf("unexpected ceilings: wiki %d, finance %d", gates["wiki"].Ceiling(), gates["finance"].Ceiling())
	}

	tk.SetMode(throttle.Block)
	for name, g := range gates {
		if g.Mode() != throttle.Block {
			t.Errorf("%s: exp block mode after SetMode", name)
		}
	}

	expected := `
		# HELP arachnid_gate_rejected_total Calls rejected in fail mode.
		# TYPE arachnid_gate_rejected_total counter
		arachnid_gate_rejected_total{source="finance"} 1
		arachnid_gate_rejected_total{source="wiki"} 0
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "arachnid_gate_rejected_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	version, err := tk.TLD.Refresh(ctx)
	if err != nil || version != "# v1" {
		t.Fatalf("exp version # v1, got %q, %v", version, err)
	}
	if !tk.TLD.ValidHost("example.org") {
		t.Error("exp example.org to be valid")
	}
}

func TestNew_Validation(t *testing.T) {
	testCases := map[string]arachnid.Option{
		"zeroWikiCeiling":    arachnid.WithWikiCeiling(0),
		"zeroFinanceCeiling": arachnid.WithFinanceCeiling(-1),
		"zeroPeriod":         arachnid.WithPeriod(0),
		"nilLogger":          arachnid.WithLogger(nil),
		"negativeMaxWait":    arachnid.WithMaxWait(-time.Second),
		"unknownMode":        arachnid.WithMode(throttle.Mode(9)),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := arachnid.New(opt); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
