// Package wiki reads page title suggestions and page summaries from the
// Wikipedia action API. Every call goes through the gate the client was
// built with.
//
//	gate, err := wiki.NewGate()
//	c, err := wiki.New(gate)
//	titles, err := c.Suggestions(ctx, "golang")
package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the encyclopedia source client.
type Client struct {
	c        *client.Client
	gate     *throttle.Gate
	endpoint *url.URL
	logger   *slog.Logger
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
			return nil, fmt.Errorf("applying wiki option: %w", err)
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
	}, nil
}

// Gate returns the gate shared by all of the client's calls.
func (c *Client) Gate() *throttle.Gate {
	return c.gate
}

// Suggestions returns the page titles the opensearch action offers for a
// partial query.
func (c *Client) Suggestions(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	u := c.url(map[string]string{
		"action": "opensearch",
		"search": query,
		"format": "json",
	})

	// The response is [query, [titles...], [descriptions...], [links...]].
	var titles []string
	decode := func(r io.Reader) error {
		var parts []jsoniter.RawMessage
		if err := json.NewDecoder(r).Decode(&parts); err != nil {
			return err
		}
		if len(parts) < 2 {
			return fmt.Errorf("opensearch response has %d elements, want at least 2", len(parts))
		}

		return json.Unmarshal(parts[1], &titles)
	}

	if err := c.c.Get(ctx, u, http.StatusOK, client.WithDecoder(decode)); err != nil {
		return nil, fmt.Errorf("suggestions for %q: %w", query, err)
	}

	if titles == nil {
		titles = []string{}
	}

	return titles, nil
}

// Summary returns the plain text introduction of the page with title,
// following redirects.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", ErrEmptyQuery
	}

	u := c.url(map[string]string{
		"action":      "query",
		"prop":        "extracts",
		"exintro":     "",
		"explaintext": "",
		"redirects":   "1",
		"titles":      strings.ReplaceAll(title, " ", "_"),
		"format":      "json",
	})

	var resp summaryResponse
	if err := c.c.Get(ctx, u, http.StatusOK, client.WithDestination(&resp)); err != nil {
		return "", fmt.Errorf("summary of %q: %w", title, err)
	}

	pages := resp.Query.Pages
	if len(pages) != 1 {
		return "", fmt.Errorf("summary of %q: %w: %d pages in response", title, client.ErrMalformedResponse, len(pages))
	}

	for _, p := range pages {
		switch {
		case p.Missing != nil || p.Invalid != nil:
			return "", fmt.Errorf("summary of %q: %w", title, ErrPageMissing)
		case p.Extract == nil:
			return "", fmt.Errorf("summary of %q: %w: page has no extract", title, client.ErrMalformedResponse)
		}

		c.logger.Debug("wiki summary", "title", title, "resolved", p.Title)

		return strings.TrimSpace(*p.Extract), nil
	}

	return "", nil
}

func (c *Client) url(query map[string]string) *url.URL {
	return client.URL(c.endpoint.Scheme, c.endpoint.Host, c.endpoint.Path, client.WithQueryStrings(query))
}
