package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route groups label HTTP metrics. Generator names and batch ids never
// become label values.
const (
	groupCatalog   = "catalog"
	groupHistory   = "history"
	groupStats     = "stats"
	groupHealth    = "health"
	groupMetrics   = "metrics"
	groupUnmatched = "unmatched"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathsheets_http_requests_total",
			Help: "HTTP requests served, by route group and status.",
		},
		[]string{"method", "route_group", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathsheets_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route group.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"route_group"},
	)

	historyUnavailableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mathsheets_http_history_unavailable_total",
			Help: "Batch history requests rejected because no history database is configured.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, historyUnavailableTotal)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		group := routeGroup(r)
		httpRequestsTotal.WithLabelValues(r.Method, group, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(group).Observe(time.Since(start).Seconds())
	})
}

// routeGroup maps the matched chi pattern to its route group.
func routeGroup(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return groupUnmatched
	}
	pattern := rctx.RoutePattern()
	switch {
	case pattern == "/healthz":
		return groupHealth
	case pattern == "/metrics":
		return groupMetrics
	case pattern == "/v1/stats":
		return groupStats
	case strings.HasPrefix(pattern, "/v1/batches"):
		return groupHistory
	case strings.HasPrefix(pattern, "/v1/generators"), pattern == "/v1/categories":
		return groupCatalog
	}
	return groupUnmatched
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
