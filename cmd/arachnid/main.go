// Command arachnid probes TCP ports, validates top-level domains and reads
// the encyclopedia and financial sources behind their rate gates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adamwoolhether/arachnid"
	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	"github.com/adamwoolhether/arachnid/internal/exporter"
	"github.com/adamwoolhether/arachnid/internal/validate"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type globalOptions struct {
	LogLevel       string        `long:"log-level" env:"ARACHNID_LOG_LEVEL" default:"info" description:"Log level" validate:"oneof=debug info warn error"`
	LogFormat      string        `long:"log-format" env:"ARACHNID_LOG_FORMAT" default:"text" description:"Log format" validate:"oneof=text json"`
	Mode           string        `long:"mode" env:"ARACHNID_MODE" default:"block" description:"What a gate does with a call over its ceiling" validate:"oneof=block fail"`
	WikiCeiling    int           `long:"wiki-ceiling" env:"ARACHNID_WIKI_CEILING" default:"200" description:"Wikipedia calls per minute ceiling" validate:"gt=0"`
	FinanceCeiling int           `long:"finance-ceiling" env:"ARACHNID_FINANCE_CEILING" default:"95" description:"Yahoo Finance calls per minute ceiling" validate:"gt=0"`
	Period         int           `long:"period" env:"ARACHNID_PERIOD" default:"6" description:"Rate estimate moving average age in minutes" validate:"gt=0"`
	MaxWait        time.Duration `long:"max-wait" env:"ARACHNID_MAX_WAIT" default:"0s" description:"Longest block mode wait before a call is admitted anyway, 0 for no limit" validate:"gte=0"`
	HTTPTimeout    time.Duration `long:"http-timeout" env:"ARACHNID_HTTP_TIMEOUT" default:"30s" description:"HTTP request timeout" validate:"gte=0"`
	UserAgent      string        `long:"user-agent" env:"ARACHNID_USER_AGENT" default:"arachnid/1.0" description:"HTTP User-Agent header"`
	MetricsAddr    string        `long:"metrics-addr" env:"ARACHNID_METRICS_ADDR" description:"Serve prometheus metrics on this address while the command runs" validate:"omitempty,hostname_port"`
	WikiURL        string        `long:"wiki-url" env:"ARACHNID_WIKI_URL" description:"Wikipedia action API endpoint" validate:"omitempty,url"`
	FinanceURL     string        `long:"finance-url" env:"ARACHNID_FINANCE_URL" description:"Yahoo Finance download API base" validate:"omitempty,url"`
	TLDURL         string        `long:"tld-url" env:"ARACHNID_TLD_URL" description:"TLD list location" validate:"omitempty,url"`
}

// cli carries the state shared by every command.
type cli struct {
	Global globalOptions

	ctx     context.Context
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	reg     *prometheus.Registry
	toolkit *arachnid.Toolkit
}

func main() {
	// A missing .env file is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	c := &cli{ctx: ctx, out: out, errOut: errOut}

	parser := flags.NewParser(&c.Global, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "arachnid"

	if err := addCommands(parser, c); err != nil {
		return fmt.Errorf("building commands: %w", err)
	}

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}
		if err := validate.Struct(&c.Global); err != nil {
			return fmt.Errorf("global options: %w", err)
		}
		if err := validate.Struct(cmd); err != nil {
			return fmt.Errorf("%s: %w", parser.Active.Name, err)
		}
		if err := c.setup(); err != nil {
			return err
		}

		return c.serveMetrics(func() error { return cmd.Execute(args) })
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(out, err)
			return nil
		}

		return err
	}

	return nil
}

// setup builds the logger and the toolkit from the global options.
func (c *cli) setup() error {
	c.logger = newLogger(c.errOut, c.Global.LogLevel, c.Global.LogFormat)

	mode, err := throttle.ParseMode(c.Global.Mode)
	if err != nil {
		return err
	}

	c.reg = prometheus.NewRegistry()
	c.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.toolkit, err = arachnid.New(
		arachnid.WithLogger(c.logger),
		arachnid.WithRegisterer(c.reg),
		arachnid.WithMode(mode),
		arachnid.WithPeriod(c.Global.Period),
		arachnid.WithMaxWait(c.Global.MaxWait),
		arachnid.WithWikiCeiling(c.Global.WikiCeiling),
		arachnid.WithFinanceCeiling(c.Global.FinanceCeiling),
		arachnid.WithClientOptions(
			client.WithTimeout(c.Global.HTTPTimeout),
			client.WithUserAgent(c.Global.UserAgent),
		),
		arachnid.WithEndpoints(c.Global.WikiURL, c.Global.FinanceURL, c.Global.TLDURL),
	)
	if err != nil {
		return fmt.Errorf("building toolkit: %w", err)
	}

	return nil
}

// serveMetrics runs fn with the metrics exporter up, when one is configured.
func (c *cli) serveMetrics(fn func() error) error {
	if c.Global.MetricsAddr == "" {
		return fn()
	}

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan error, 1)
	go func() {
		done <- exporter.New(c.Global.MetricsAddr, c.reg, exporter.WithLogger(c.logger)).Run(ctx, nil)
	}()

	err := fn()
	cancel()

	return errors.Join(err, <-done)
}

// print writes v as one JSON line.
func (c *cli) print(v any) error {
	return json.NewEncoder(c.out).Encode(v)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
