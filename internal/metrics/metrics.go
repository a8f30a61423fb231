// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantkeeper"

// Provider request outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_rejections_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	RateLimitStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_store_errors_total",
		Help:      "Window store failures; the request was admitted anyway.",
	})

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Calls to the plant data provider by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	ValidationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_fallbacks_total",
		Help:      "Provider records served raw because they failed schema validation.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
