// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "timeledger"

var (
	SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Stale session sweep passes.",
	})
	SweepClosedSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sweep",
		Name:      "closed_sessions_total",
		Help:      "Clock sessions closed by the sweep.",
	})
	SweepErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sweep",
		Name:      "errors_total",
		Help:      "Sessions the sweep failed to close, plus failed passes.",
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(SweepRuns, SweepClosedSessions, SweepErrors, HTTPRequests)
}
