package metrics

import (
	"net/http"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spend_atlas"

// Recorder publishes run outcomes. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	providerErrors *prometheus.CounterVec
	totalSpend     *prometheus.GaugeVec
}

func NewRecorder(registry *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Aggregation runs by final state.",
		}, []string{"state"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of aggregation runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider fetch failures by kind.",
		}, []string{"provider", "kind"}),
		totalSpend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_spend",
			Help:      "Month-to-date spend across providers in the configured currency.",
		}, []string{"currency"}),
	}
	registry.MustRegister(r.runs, r.runDuration, r.providerErrors, r.totalSpend)
	return r
}

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(snapshot *domain.Snapshot, elapsed time.Duration) {
	if r == nil || snapshot == nil {
		return
	}

	r.runs.WithLabelValues(string(snapshot.State())).Inc()
	r.runDuration.Observe(elapsed.Seconds())

	for _, p := range domain.Providers {
		res, ok := snapshot.PerProvider[p]
		if !ok || res.Error == nil {
			continue
		}
		r.providerErrors.WithLabelValues(string(p), string(res.Error.Kind)).Inc()
	}

	if snapshot.State() == domain.RunStateCompleted {
		r.totalSpend.Reset()
		r.totalSpend.WithLabelValues(snapshot.Currency).Set(snapshot.TotalConverted.InexactFloat64())
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
