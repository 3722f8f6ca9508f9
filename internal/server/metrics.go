package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "puertos_china"

// Metrics holds the Prometheus collectors of the dashboard service. They are
// registered on a private registry so that several servers can coexist in
// one process (tests).
type Metrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: route, method, status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency.
	// Labels: route
	RequestDurationSeconds *prometheus.HistogramVec

	// ComputationsTotal counts dashboard recomputations.
	// Labels: tab
	ComputationsTotal *prometheus.CounterVec

	// DatasetRows reports the rows loaded per table.
	// Labels: table (series, ranking, ports)
	DatasetRows *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		RequestDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ComputationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dashboard",
			Name:      "computations_total",
			Help:      "Dashboard recomputations by active series tab.",
		}, []string{"tab"}),
		DatasetRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "rows",
			Help:      "Rows loaded per source table.",
		}, []string{"table"}),
	}
}
