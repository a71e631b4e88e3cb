package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adamwoolhether/arachnid/finance"
	"github.com/adamwoolhether/arachnid/probe"
	"github.com/jessevdk/go-flags"
)

var errUnreachable = errors.New("port unreachable")

func addCommands(parser *flags.Parser, c *cli) error {
	if _, err := parser.AddCommand("probe", "Probe TCP ports",
		"Connects to every port of a host in order and reports the first port that did not accept.",
		&probeCmd{cli: c}); err != nil {
		return err
	}

	tldCmd, err := parser.AddCommand("tld", "Top-level domain list", "Downloads and checks against the IANA top-level domain list.", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := tldCmd.AddCommand("refresh", "Download the list", "Downloads the list and prints its version.", &tldRefreshCmd{cli: c}); err != nil {
		return err
	}
	if _, err := tldCmd.AddCommand("check", "Check hosts", "Reports whether each host ends in a known top-level domain.", &tldCheckCmd{cli: c}); err != nil {
		return err
	}
	if _, err := tldCmd.AddCommand("watch", "Keep the list fresh", "Refreshes the list on an interval until interrupted.", &tldWatchCmd{cli: c}); err != nil {
		return err
	}

	wikiCmd, err := parser.AddCommand("wiki", "Wikipedia", "Reads title suggestions and page summaries.", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := wikiCmd.AddCommand("suggest", "Suggest page titles", "Prints the page titles suggested for a query.", &wikiSuggestCmd{cli: c}); err != nil {
		return err
	}
	if _, err := wikiCmd.AddCommand("summary", "Summarize a page", "Prints the plain text introduction of a page.", &wikiSummaryCmd{cli: c}); err != nil {
		return err
	}

	financeCmd, err := parser.AddCommand("finance", "Yahoo Finance", "Reads price histories.", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := financeCmd.AddCommand("history", "Price history", "Prints the candles of a ticker.", &financeHistoryCmd{cli: c}); err != nil {
		return err
	}

	return nil
}

// /////////////////////////////////////////////////////////////////
// probe

type probeCmd struct {
	cli *cli

	Host       string        `long:"host" required:"true" description:"Host name or IP address" validate:"required,hostname|ip"`
	Ports      []int         `short:"p" long:"port" required:"true" description:"Port to probe, repeatable" validate:"min=1,dive,min=1,max=65535"`
	Timeout    time.Duration `long:"timeout" default:"3s" description:"Timeout per connection, 0 for none" validate:"gte=0"`
	Concurrent int           `long:"concurrent" default:"0" description:"Probe this many ports at once instead of in order" validate:"gte=0"`
}

func (cmd *probeCmd) Execute([]string) error {
	c := cmd.cli

	var (
		failed  = probe.AllReachable
		results []probe.Result
	)

	if cmd.Concurrent > 0 {
		targets := make([]probe.Target, len(cmd.Ports))
		for i, port := range cmd.Ports {
			targets[i] = probe.Target{Host: cmd.Host, Port: port}
		}

		results = c.toolkit.Prober.ProbeAll(c.ctx, targets, cmd.Timeout, cmd.Concurrent)
		for i, r := range results {
			if !r.Open {
				failed = cmd.Ports[i]
				break
			}
		}
	} else {
		failed, results = c.toolkit.Prober.SequenceResults(c.ctx, cmd.Host, cmd.Ports, cmd.Timeout)
	}

	for _, r := range results {
		if err := c.print(r); err != nil {
			return err
		}
	}

	if failed != probe.AllReachable {
		return fmt.Errorf("%s: first failure on %d: %w", cmd.Host, failed, errUnreachable)
	}

	return nil
}

// /////////////////////////////////////////////////////////////////
// tld

type tldRefreshCmd struct {
	cli *cli
}

func (cmd *tldRefreshCmd) Execute([]string) error {
	c := cmd.cli

	version, err := c.toolkit.TLD.Refresh(c.ctx)
	if err != nil {
		return err
	}

	return c.print(map[string]any{"version": version, "domains": c.toolkit.TLD.Len()})
}

type tldCheckCmd struct {
	cli *cli

	List string `long:"list" description:"Read the list from this file instead of downloading it" validate:"omitempty,file"`
	Args struct {
		Hosts []string `positional-arg-name:"HOST" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *tldCheckCmd) Execute([]string) error {
	c := cmd.cli

	if cmd.List != "" {
		f, err := os.Open(cmd.List)
		if err != nil {
			return fmt.Errorf("opening list: %w", err)
		}
		defer f.Close()

		if _, err := c.toolkit.TLD.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", cmd.List, err)
		}
	} else if _, err := c.toolkit.TLD.Refresh(c.ctx); err != nil {
		return err
	}

	for _, host := range cmd.Args.Hosts {
		if err := c.print(map[string]any{"host": host, "valid": c.toolkit.TLD.ValidHost(host)}); err != nil {
			return err
		}
	}

	return nil
}

type tldWatchCmd struct {
	cli *cli

	Interval time.Duration `long:"interval" default:"24h" description:"Time between refreshes" validate:"gt=0"`
}

func (cmd *tldWatchCmd) Execute([]string) error {
	return cmd.cli.toolkit.TLD.Run(cmd.cli.ctx, cmd.Interval)
}

// /////////////////////////////////////////////////////////////////
// wiki

type wikiSuggestCmd struct {
	cli *cli

	Args struct {
		Query []string `positional-arg-name:"QUERY" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *wikiSuggestCmd) Execute([]string) error {
	c := cmd.cli

	titles, err := c.toolkit.Wiki.Suggestions(c.ctx, strings.Join(cmd.Args.Query, " "))
	if err != nil {
		return err
	}

	return c.print(titles)
}

type wikiSummaryCmd struct {
	cli *cli

	Args struct {
		Title []string `positional-arg-name:"TITLE" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *wikiSummaryCmd) Execute([]string) error {
	c := cmd.cli

	title := strings.Join(cmd.Args.Title, " ")
	summary, err := c.toolkit.Wiki.Summary(c.ctx, title)
	if err != nil {
		return err
	}

	return c.print(map[string]string{"title": title, "summary": summary})
}

// /////////////////////////////////////////////////////////////////
// finance

type financeHistoryCmd struct {
	cli *cli

	From     string `long:"from" description:"First day, YYYY-MM-DD. Defaults to a year before --to" validate:"omitempty,datetime=2006-01-02"`
	To       string `long:"to" description:"Last day, YYYY-MM-DD. Defaults to today" validate:"omitempty,datetime=2006-01-02"`
	Interval string `long:"interval" default:"1d" description:"Candle width" validate:"oneof=1d 1wk 1mo"`
	Args     struct {
		Ticker string `positional-arg-name:"TICKER" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *financeHistoryCmd) Execute([]string) error {
	c := cmd.cli

	to := time.Now().UTC()
	if cmd.To != "" {
		// Format checked by the datetime tag.
		to, _ = time.Parse(time.DateOnly, cmd.To)
	}

	from := to.AddDate(-1, 0, 0)
	if cmd.From != "" {
		from, _ = time.Parse(time.DateOnly, cmd.From)
	}

	interval, err := finance.ParseInterval(cmd.Interval)
	if err != nil {
		return err
	}

	h, err := c.toolkit.Finance.History(c.ctx, cmd.Args.Ticker, from, to, interval)
	if err != nil {
		return err
	}

	return c.print(h)
}
