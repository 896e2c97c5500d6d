// Package metrics holds the Prometheus collectors shared by the client and the dev server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts requests served by the dev server
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btw_devserver_http_requests_total",
		Help: "HTTP requests handled by the development API server.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "btw_devserver_http_request_duration_seconds",
		Help:    "Latency of requests handled by the development API server.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// APIRequestsTotal counts outbound calls made by the API client
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btw_api_requests_total",
		Help: "Requests sent to the BTW Buddy API.",
	}, []string{"method", "path", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "btw_api_request_duration_seconds",
		Help:    "Latency of requests sent to the BTW Buddy API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btw_token_refresh_total",
		Help: "Access token refresh attempts by result.",
	}, []string{"result"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btw_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
)

// Result labels
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultSkipped  = "skipped"
	ResultAborted  = "aborted"
	ResultRequires = "requires_2fa"
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
