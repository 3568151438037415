package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors updated by the run engine.
type Metrics struct {
	ProbesTotal *prometheus.CounterVec
	InFlight    prometheus.Gauge
	Latency     prometheus.Histogram
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_probes_total",
			Help: "Probes completed, by outcome.",
		}, []string{"outcome"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_probes_in_flight",
			Help: "Probes currently executing.",
		}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_probe_latency_seconds",
			Help:    "Wall-clock latency of one probe call chain.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ProbesTotal, m.InFlight, m.Latency)
	return m
}

// Exporter serves the registry on addr at /metrics.
func Exporter(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
