package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "nbtoc"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	tickDuration   prom.Histogram
	tickResults    *prom.CounterVec
	entries        *prom.GaugeVec
	observerErrors *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual tick stages",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"stage"}),
		tickDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Total duration of a refresh tick",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}),
		tickResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tick_results_total",
			Help:      "Refresh ticks by outcome",
		}, []string{"result"}),
		entries: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Entries in the last successfully built table of contents",
		}, []string{"level"}),
		observerErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "observer_errors_total",
			Help:      "Failed update notifications by observer",
		}, []string{"observer"}),
	}
	reg.MustRegister(pr.stageDuration, pr.tickDuration, pr.tickResults, pr.entries, pr.observerErrors)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveTickDuration(d time.Duration) {
	if p == nil || p.tickDuration == nil {
		return
	}
	p.tickDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTickResult(result ResultLabel) {
	if p == nil || p.tickResults == nil {
		return
	}
	p.tickResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetEntries(primary, secondary int) {
	if p == nil || p.entries == nil {
		return
	}
	p.entries.WithLabelValues("primary").Set(float64(primary))
	p.entries.WithLabelValues("secondary").Set(float64(secondary))
}

func (p *PrometheusRecorder) IncObserverError(observer string) {
	if p == nil || p.observerErrors == nil {
		return
	}
	p.observerErrors.WithLabelValues(observer).Inc()
}
