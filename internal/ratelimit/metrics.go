package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// route scope: enroll, scan, download
	Rejections *prometheus.CounterVec
	// recorded, locked
	Lockouts *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_ratelimit_rejections_total",
			Help: "Requests rejected by the per-client limiter",
		}, []string{"scope"}),
		Lockouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_ratelimit_enroll_failures_total",
			Help: "Enrollment PIN failures and the rejections they caused",
		}, []string{"event"}),
	}
}

func (m *Metrics) incrementRejection(scope string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(scope).Inc()
}

func (m *Metrics) incrementLockout(event string) {
	if m == nil {
		return
	}
	m.Lockouts.WithLabelValues(event).Inc()
}
