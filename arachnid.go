// Package arachnid composes the toolkit: one gate per external source, the
// source clients built on them, the TLD registry and a prober.
//
// Each source's gate is created here and handed to its client, so callers
// that need isolated state build their own Toolkit or use the source
// packages directly.
package arachnid

import (
	"fmt"
	"log/slog"

	"github.com/adamwoolhether/arachnid/client"
	"github.com/adamwoolhether/arachnid/client/throttle"
	"github.com/adamwoolhether/arachnid/finance"
	"github.com/adamwoolhether/arachnid/probe"
	"github.com/adamwoolhether/arachnid/tld"
	"github.com/adamwoolhether/arachnid/wiki"
)

// Toolkit holds the components sharing one configuration.
type Toolkit struct {
	Wiki    *wiki.Client
	Finance *finance.Client
	TLD     *tld.Registry
	Prober  *probe.Prober

	wikiGate    *throttle.Gate
	financeGate *throttle.Gate
}

// New builds a Toolkit.
func New(optFns ...Option) (*Toolkit, error) {
	o := options{
		mode:           throttle.Block,
		period:         throttle.DefaultPeriod,
		wikiCeiling:    wiki.DefaultCeiling,
		financeCeiling: finance.DefaultCeiling,
		logger:         slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("applying toolkit option: %w", err)
		}
	}

	gateOpts := []throttle.Option{
		throttle.WithMode(o.mode),
		throttle.WithPeriod(o.period),
		throttle.WithLogger(o.logger),
		throttle.WithMaxWait(o.maxWait),
	}
	if o.registerer != nil {
		gateOpts = append(gateOpts, throttle.WithRegisterer(o.registerer))
	}

	wikiGate, err := throttle.New(wiki.GateName, o.wikiCeiling, gateOpts...)
	if err != nil {
		return nil, fmt.Errorf("building %s gate: %w", wiki.GateName, err)
	}

	financeGate, err := throttle.New(finance.GateName, o.financeCeiling, gateOpts...)
	if err != nil {
		return nil, fmt.Errorf("building %s gate: %w", finance.GateName, err)
	}

	wikiOpts := []wiki.Option{wiki.WithLogger(o.logger), wiki.WithClientOptions(o.clientOpts...)}
	if o.wikiEndpoint != "" {
		wikiOpts = append(wikiOpts, wiki.WithEndpoint(o.wikiEndpoint))
	}
	wc, err := wiki.New(wikiGate, wikiOpts...)
	if err != nil {
		return nil, fmt.Errorf("building wiki client: %w", err)
	}

	financeOpts := []finance.Option{finance.WithLogger(o.logger), finance.WithClientOptions(o.clientOpts...)}
	if o.financeEndpoint != "" {
		financeOpts = append(financeOpts, finance.WithEndpoint(o.financeEndpoint))
	}
	fc, err := finance.New(financeGate, financeOpts...)
	if err != nil {
		return nil, fmt.Errorf("building finance client: %w", err)
	}

	tldOpts := []tld.Option{tld.WithLogger(o.logger), tld.WithClientOptions(o.clientOpts...)}
	if o.tldSource != "" {
		tldOpts = append(tldOpts, tld.WithSource(o.tldSource))
	}
	reg, err := tld.New(tldOpts...)
	if err != nil {
		return nil, fmt.Errorf("building tld registry: %w", err)
	}

	return &Toolkit{
		Wiki:        wc,
		Finance:     fc,
		TLD:         reg,
		Prober:      probe.New(probe.WithLogger(o.logger)),
		wikiGate:    wikiGate,
		financeGate: financeGate,
	}, nil
}

// SetMode switches every source gate to m.
func (t *Toolkit) SetMode(m throttle.Mode) {
	t.wikiGate.SetMode(m)
	t.financeGate.SetMode(m)
}

// Gates returns the source gates keyed by source name.
func (t *Toolkit) Gates() map[string]*throttle.Gate {
	return map[string]*throttle.Gate{
		t.wikiGate.Name():    t.wikiGate,
		t.financeGate.Name(): t.financeGate,
	}
}

var _ client.Gate = (*throttle.Gate)(nil)
