// Package metrics provides Prometheus metrics for a newsletter run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "newsletter"

// Recorder owns a registry scoped to one process and the run metrics in it.
type Recorder struct {
	registry *prometheus.Registry

	itemsFetched     *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	blacklistDropped prometheus.Counter
	stageFallbacks   *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Gauge
	pushgatewayURL   string
	job              string
}

// NewRecorder registers all collectors on a fresh registry. Pushing is
// enabled only when pushgatewayURL is set.
func NewRecorder(pushgatewayURL, job string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	if job == "" {
		job = namespace
	}

	return &Recorder{
		registry: reg,
		itemsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Items returned by fetch adapters",
		}, []string{"kind", "source"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Fetch adapter calls that failed or timed out",
		}, []string{"kind", "source"}),
		blacklistDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blacklist_dropped_total",
			Help:      "Articles removed by the source blacklist",
		}),
		stageFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_fallbacks_total",
			Help:      "Items that received a fallback value from an enrichment stage",
		}, []string{"stage"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs by terminal status",
		}, []string{"status"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last pipeline run",
		}),
		pushgatewayURL: pushgatewayURL,
		job:            job,
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Fetched records a successful adapter call.
func (r *Recorder) Fetched(kind, source string, count int) {
	r.itemsFetched.WithLabelValues(kind, source).Add(float64(count))
}

// Failed records a failed adapter call.
func (r *Recorder) Failed(kind, source string) {
	r.fetchFailures.WithLabelValues(kind, source).Inc()
}

// Fallback records one degraded item in a stage.
func (r *Recorder) Fallback(stage string) {
	r.stageFallbacks.WithLabelValues(stage).Inc()
}

// BlacklistDropped records removed articles.
func (r *Recorder) BlacklistDropped(n int) {
	if n > 0 {
		r.blacklistDropped.Add(float64(n))
	}
}

// RunFinished records the terminal status and duration of a run.
func (r *Recorder) RunFinished(status string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Set(elapsed.Seconds())
}

// Push sends the registry to the pushgateway; it is a no-op when none is configured.
func (r *Recorder) Push(ctx context.Context) error {
	if r.pushgatewayURL == "" {
		return nil
	}
	if err := push.New(r.pushgatewayURL, r.job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
