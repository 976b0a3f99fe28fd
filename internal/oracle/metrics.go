package oracle

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// probesTotal counts oracle probes (after retries).
	// Labels: outcome (ok, unavailable, malformed)
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bullscows",
		Subsystem: "oracle",
		Name:      "probes_total",
		Help:      "Total oracle probes by outcome",
	}, []string{"outcome"})

	// probeLatency measures a probe including retries and pacing.
	probeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bullscows",
		Subsystem: "oracle",
		Name:      "probe_duration_seconds",
		Help:      "Oracle probe latency in seconds",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedFeedback):
		return "malformed"
	default:
		return "unavailable"
	}
}

func observe(err error, d time.Duration) {
	probesTotal.WithLabelValues(outcome(err)).Inc()
	probeLatency.Observe(d.Seconds())
}
