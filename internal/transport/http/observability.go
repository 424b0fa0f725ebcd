package transporthttp

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hellofresh/health-go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const checkTimeout = 3 * time.Second

// Pinger is anything whose reachability gates readiness (Postgres, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Liveness flips to unhealthy when shutdown begins.
type Liveness struct {
	healthy atomic.Bool
}

func (l *Liveness) Set(ok bool) { l.healthy.Store(ok) }

func (l *Liveness) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if l.healthy.Load() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
}

// NewReadiness builds the /readyz handler with one health-go check per dependency.
func NewReadiness(version string, deps map[string]Pinger) (http.Handler, error) {
	checks := make([]health.Config, 0, len(deps))
	for name, p := range deps {
		p := p
		checks = append(checks, health.Config{
			Name:    name,
			Timeout: checkTimeout,
			Check:   func(ctx context.Context) error { return p.Ping(ctx) },
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{Name: "events-api", Version: version}),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, err
	}
	return h.Handler(), nil
}

func ObservabilityRouter(live *Liveness, ready http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/healthz", live.Handler())
	r.Method(http.MethodGet, "/readyz", ready)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
