// Package monitoring exposes Prometheus metrics for the replay service.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradereplay/services/engine"
)

// Registry holds the service's Prometheus metrics on a private registry so
// tests can create registries without duplicate-registration panics.
type Registry struct {
	registry *prometheus.Registry

	RunsTotal      prometheus.Counter
	RunDuration    prometheus.Histogram
	TradesTotal    *prometheus.CounterVec
	GovVerdicts    *prometheus.CounterVec
	ActiveRuns     prometheus.Gauge
	InsertFailures prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradereplay_runs_total",
			Help: "Total number of completed backtest runs",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradereplay_run_duration_seconds",
			Help:    "Wall-clock duration of one backtest run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradereplay_trades_total",
			Help: "Closed trades by instrument and exit reason",
		}, []string{"instrument", "exit_reason"}),
		GovVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradereplay_governance_verdicts_total",
			Help: "Governance verdicts behind recorded trades",
		}, []string{"verdict"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradereplay_active_runs",
			Help: "Backtest runs currently executing",
		}),
		InsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradereplay_insert_failures_total",
			Help: "Trade rows that failed to persist",
		}),
	}

	r.registry.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.TradesTotal,
		r.GovVerdicts,
		r.ActiveRuns,
		r.InsertFailures,
	)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one completed run.
func (r *Registry) ObserveRun(result *engine.RunResult) {
	r.RunsTotal.Inc()
	r.RunDuration.Observe(float64(result.DurationMs) / 1000)
	for _, tr := range result.Trades {
		r.TradesTotal.WithLabelValues(tr.Instrument, string(tr.ExitReason)).Inc()
		r.GovVerdicts.WithLabelValues(string(tr.Decision.Verdict)).Inc()
	}
}

// Gather exposes the underlying registry for tests.
func (r *Registry) Gather() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = total
	}
	return out, nil
}
