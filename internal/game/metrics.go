package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished runs.
	// Labels: status (stopped, failed, error), reason (failure reason, empty otherwise)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bullscows",
		Subsystem: "solver",
		Name:      "runs_total",
		Help:      "Total solver runs by terminal status",
	}, []string{"status", "reason"})

	// runProbes is the number of oracle calls a run needed.
	runProbes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bullscows",
		Subsystem: "solver",
		Name:      "run_probes",
		Help:      "Oracle calls per solver run",
		Buckets:   []float64{1, 2, 4, 7, 10, 13, 16, 20, 30, 50},
	})
)

// recordRun observes a finished run. Runs aborted by an oracle error are
// counted under status "error".
func recordRun(st State, err error) {
	status := string(st.Status)
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(status, string(st.Reason)).Inc()
	runProbes.Observe(float64(st.History.Probes()))
}
