package smbserver

import "github.com/prometheus/client_golang/prometheus"

// metrics are the counters/gauges this listener exposes; they promote the
// same connection/request facts the teacher's adapter only logged
// periodically (MetricsLogInterval) into real, scrapeable instrumentation.
var (
	connectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "smbd",
		Name:      "connections_total",
		Help:      "Total TCP connections accepted.",
	})

	connectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "smbd",
		Name:      "connections_active",
		Help:      "Currently open TCP connections.",
	})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smbd",
		Name:      "requests_total",
		Help:      "Total SMB2 requests processed, by command name.",
	}, []string{"command"})

	requestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smbd",
		Name:      "request_errors_total",
		Help:      "Total SMB2 requests that completed with a non-success status, by command name.",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(connectionsTotal, connectionsActive, requestsTotal, requestErrorsTotal)
}
