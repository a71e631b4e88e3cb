// Package finance downloads price histories from the Yahoo Finance CSV API.
// Every call goes through the gate the client was built with.
package finance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
)

// Client is the financial time-series source client.
type Client struct {
	c        *client.Client
	gate     *throttle.Gate
	endpoint *url.URL
	logger   *slog.Logger
	now      func() time.Time
}

// NewGate builds a gate with the source's default ceiling and period.
// optFns are applied after the defaults.
func NewGate(optFns ...throttle.Option) (*throttle.Gate, error) {
	opts := append([]throttle.Option{throttle.WithPeriod(DefaultPeriod)}, optFns...)

	return throttle.New(GateName, DefaultCeiling, opts...)
}

// New returns a Client whose calls all go through gate.
func New(gate *throttle.Gate, optFns ...Option) (*Client, error) {
	if gate == nil {
		return nil, errors.New("gate must not be nil")
	}

	opts := options{endpoint: DefaultEndpoint}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying finance option: %w", err)
		}
	}

	endpoint, err := url.Parse(opts.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}

	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := append(opts.clientOpts, client.WithLogger(logger), client.WithGate(gate))
	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("building http client: %w", err)
	}

	return &Client{
		c:        c,
		gate:     gate,
		endpoint: endpoint,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Gate returns the gate shared by all of the client's calls.
func (c *Client) Gate() *throttle.Gate {
	return c.gate
}

// History downloads the candles of ticker between from and to, inclusive:
// the candle dated on to's day is part of the history. A zero to means now.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time, interval Interval) (*History, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker: %w", ErrInvalidQuery)
	}
	if _, err := ParseInterval(string(interval)); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = c.now()
	}
	if from.After(to) {
		return nil, fmt.Errorf("from %s after to %s: %w", from.Format(dateLayout), to.Format(dateLayout), ErrInvalidQuery)
	}

	u := client.URL(c.endpoint.Scheme, c.endpoint.Host, path.Join(c.endpoint.Path, ticker),
		client.WithQueryStrings(map[string]string{
			"period1":              strconv.FormatInt(from.Unix(), 10),
			"period2":              strconv.FormatInt(dayAfter(to).Unix(), 10),
			"interval":             string(interval),
			"events":               "history",
			"includeAdjustedClose": "true",
		}),
	)

	h := History{Ticker: ticker, Interval: interval}
	decode := func(r io.Reader) error {
		candles, skipped, err := parseCandles(r)
		if err != nil {
			return err
		}
		h.Candles, h.Skipped = candles, skipped
		return nil
	}

	if err := c.c.Get(ctx, u, http.StatusOK, client.WithDecoder(decode)); err != nil {
		return nil, fmt.Errorf("history of %s: %w", ticker, err)
	}

	if h.Skipped > 0 {
		c.logger.Debug("finance history rows skipped", "ticker", ticker, "skipped", h.Skipped)
	}

	return &h, nil
}

// dayAfter returns the start of the day following t, in t's location.
// period2 is exclusive, so this is the first instant past to's day.
func dayAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// parseCandles reads the download CSV. Columns are located by header name;
// rows holding a null value are skipped and counted.
func parseCandles(r io.Reader) ([]Candle, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	var idx [len(columns)]int
	for i, name := range columns {
		idx[i] = -1
		for j, field := range header {
			if strings.TrimSpace(field) == name {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, 0, fmt.Errorf("header missing column %q", name)
		}
	}

	candles := []Candle{}
	var skipped int

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading row: %w", err)
		}

		line, _ := cr.FieldPos(0)

		fields := make([]string, len(columns))
		null := false
		for i, j := range idx {
			if j >= len(record) {
				return nil, 0, fmt.Errorf("line %d: %d fields, want column %d", line, len(record), j+1)
			}
			fields[i] = record[j]
			if fields[i] == "null" {
				null = true
			}
		}
		if null {
			skipped++
			continue
		}

		candle, err := parseCandle(fields)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		candles = append(candles, candle)
	}

	return candles, skipped, nil
}

// parseCandle converts fields given in columns order.
func parseCandle(fields []string) (Candle, error) {
	var c Candle

	date, err := time.Parse(dateLayout, fields[0])
	if err != nil {
		return Candle{}, fmt.Errorf("date: %w", err)
	}
	c.Date = date

	prices := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.AdjClose}
	for i, p := range prices {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Candle{}, fmt.Errorf("%s: %w", columns[i+1], err)
		}
		*p = v
	}

	volume, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("volume: %w", err)
	}
	c.Volume = volume

	return c, nil
}
