package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundkeeper_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fundkeeper_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	contributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundkeeper_contributions_total",
			Help: "Contribution attempts by outcome",
		},
		[]string{"outcome"},
	)

	contributedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fundkeeper_contributed_amount_total",
			Help: "Sum of committed contribution amounts",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fundkeeper_rate_limited_total",
			Help: "Requests rejected by the login rate limiter",
		},
	)
)

func recordContribution(outcome string, amount decimal.Decimal) {
	contributionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		contributedAmount.Add(amount.InexactFloat64())
	}
}

// metrics records request counts and latency labelled by route pattern.
func metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
