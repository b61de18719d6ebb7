// Package metrics holds the prometheus collectors for tile rendering and
// the HTTP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TilesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tilecut",
		Subsystem: "render",
		Name:      "tiles_total",
		Help:      "Total tiles rendered",
	}, []string{"format", "status"})

	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tilecut",
		Subsystem: "render",
		Name:      "duration_seconds",
		Help:      "Tile render latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"format"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tilecut",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total catalog hits",
	}, []string{"backend"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tilecut",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total catalog misses",
	}, []string{"backend"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tilecut",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})
)

// Status labels for TilesRendered.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// ObserveRender records one render of format that started at start.
func ObserveRender(format, status string, start time.Time) {
	TilesRendered.WithLabelValues(format, status).Inc()
	RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// ObserveRequest counts one served HTTP request.
func ObserveRequest(method, route, status string) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
