package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the update dispatcher.
type Metrics struct {
	// Refresh outcomes: updated, unchanged, coalesced, upstream_unavailable, failed
	RefreshOutcome *prometheus.CounterVec

	// Push results per device: sent, unregistered, failed
	PushResult *prometheus.CounterVec

	RefreshLatency prometheus.Histogram
	BuildLatency   prometheus.Histogram

	SweepItems *prometheus.CounterVec

	QueueDepth   prometheus.Gauge
	QueueDropped prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RefreshOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_dispatch_refresh_total",
			Help: "Pass refresh attempts by outcome",
		}, []string{"outcome"}),

		PushResult: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_dispatch_push_total",
			Help: "Change notifications by result",
		}, []string{"result"}),

		RefreshLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobilid_dispatch_refresh_duration_seconds",
			Help:    "Duration of a refresh including upstream fetch, build and commit",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		BuildLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobilid_dispatch_build_duration_seconds",
			Help:    "Duration of archive builds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		SweepItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_dispatch_sweep_items_total",
			Help: "Passes visited by the sweep, by outcome",
		}, []string{"outcome"}),

		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "mobilid_dispatch_queue_depth",
			Help: "Background tasks waiting for a worker",
		}),

		QueueDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "mobilid_dispatch_queue_dropped_total",
			Help: "Background tasks rejected because the queue was full",
		}),
	}
}

func (m *Metrics) IncrementRefresh(outcome string) {
	if m != nil {
		m.RefreshOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementPush(result string) {
	if m != nil {
		m.PushResult.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m != nil {
		m.RefreshLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBuild(d time.Duration) {
	if m != nil {
		m.BuildLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSweepItem(outcome string) {
	if m != nil {
		m.SweepItems.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) IncrementQueueDropped() {
	if m != nil {
		m.QueueDropped.Inc()
	}
}
