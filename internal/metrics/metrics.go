// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aievents"

type Metrics struct {
	// Submissions counts gate outcomes; reason is empty for accepted and rate limited.
	Submissions *prometheus.CounterVec
	// LimiterErrors counts rate limit store failures (requests are admitted).
	LimiterErrors prometheus.Counter
	// Requests and RequestDuration cover every HTTP request.
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "The total number of event submissions by outcome",
		}, []string{"outcome", "reason"}),
		LimiterErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limiter_errors_total",
			Help:      "The total number of failed rate limit checks",
		}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of handled requests",
		}, []string{"method", "route", "code"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "The histogram of request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
