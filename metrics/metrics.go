// Package metrics exposes the supervisor's worker lifecycle counters to prometheus.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bchecker"

type Metrics struct {
	Spawned prometheus.Counter
	Reaped  prometheus.Counter
	Killed  prometheus.Counter
	Live    prometheus.Gauge
}

// New registers the supervisor metrics in reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Spawned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_spawned_total",
			Help:      "Workers started, one per accepted connection",
		}),
		Reaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_reaped_total",
			Help:      "Workers removed from the registry after they terminated",
		}),
		Killed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_killed_total",
			Help:      "Workers force-terminated at the end of the shutdown grace interval",
		}),
		Live: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_live",
			Help:      "Workers currently in the registry",
		}),
	}
}

type health struct {
	Status  string `json:"status"`
	Workers int    `json:"workers"`
}

// Handler serves the metrics gathered by g on /metrics and a liveness summary on /healthz.
func Handler(g prometheus.Gatherer, live func() int) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health{Status: "ok", Workers: live()})
	})
	return r
}
