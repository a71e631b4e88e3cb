package throttle

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "arachnid"

type metrics struct {
	admitted prometheus.Counter
	rejected prometheus.Counter
	waited   prometheus.Histogram
	estimate prometheus.GaugeFunc
}

// newMetrics builds the gate's collectors, labelled with the source name.
// They are only exposed when reg is non-nil.
func newMetrics(g *Gate, reg prometheus.Registerer) (*metrics, error) {
	labels := prometheus.Labels{"source": g.name}

	m := &metrics{
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "gate",
			Name:        "admitted_total",
			Help:        "Calls admitted by the gate.",
			ConstLabels: labels,
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "gate",
			Name:        "rejected_total",
			Help:        "Calls rejected in fail mode.",
			ConstLabels: labels,
		}),
		waited: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "gate",
			Name:        "wait_seconds",
			Help:        "Time block mode callers spent waiting for the estimate to drop.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		estimate: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "gate",
			Name:        "estimate_per_minute",
			Help:        "Current decaying estimate of calls per minute.",
			ConstLabels: labels,
		}, g.Estimate),
	}

	if reg == nil {
		return m, nil
	}

	var errs []error
	for _, c := range []prometheus.Collector{m.admitted, m.rejected, m.waited, m.estimate} {
		errs = append(errs, reg.Register(c))
	}

	return m, errors.Join(errs...)
}
