package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"
	"github.com/AppsFlyer/go-sundheit/checks"
	gosundheithttp "github.com/AppsFlyer/go-sundheit/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConfigHealth tracks whether the configuration loader (loader.Loader)
// is still making progress, grounded on dex's storage.NewCustomHealthCheckFunc
// custom check pattern. It reports unhealthy once the loader has been
// stuck reading a broken file for longer than staleAfter.
type ConfigHealth struct {
	staleAfter time.Duration

	mu          sync.Mutex
	lastSuccess time.Time
	failing     bool
}

// NewConfigHealth builds a ConfigHealth that tolerates up to
// staleAfter of continuous read/decode failure before reporting
// unhealthy. Callers pass three poll periods' worth of slack, per
// SPEC_FULL.md §4.L.
func NewConfigHealth(staleAfter time.Duration) *ConfigHealth {
	return &ConfigHealth{staleAfter: staleAfter, lastSuccess: time.Now()}
}

// RecordSuccess must be called from the loader's OnReload hook (or
// any successful tick) to reset the staleness clock.
func (c *ConfigHealth) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSuccess = time.Now()
	c.failing = false
}

func (c *ConfigHealth) checkFunc() func(context.Context) (interface{}, error) {
	return func(_ context.Context) (interface{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		stale := time.Since(c.lastSuccess)
		if stale > c.staleAfter {
			c.failing = true
			return nil, fmt.Errorf("configuration has not reloaded successfully in %s", stale.Round(time.Second))
		}
		return nil, nil
	}
}

// RegisterWith attaches the config check to a go-sundheit health checker.
func (c *ConfigHealth) RegisterWith(checker gosundheit.Health, period time.Duration) error {
	return checker.RegisterCheck(&gosundheit.Config{
		Check: &checks.CustomCheck{
			CheckName: "config",
			CheckFunc: c.checkFunc(),
		},
		ExecutionPeriod:  period,
		InitiallyPassing: true,
	})
}

// Handler builds the telemetry mux: /metrics plus the go-sundheit
// family of health endpoints, mirroring cmd/dex/serve.go's
// telemetryRouter wiring.
func Handler(metrics *Metrics, checker gosundheit.Health) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	healthHandler := gosundheithttp.HandleHealthJSON(checker)
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/healthz/live", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/healthz/ready", healthHandler)

	return mux
}
