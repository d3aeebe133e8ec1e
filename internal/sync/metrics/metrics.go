package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts device protocol traffic by outcome.
type Metrics struct {
	// created, exists, unauthorized
	Registrations *prometheus.CounterVec
	// removed, unauthorized
	Unregistrations *prometheus.CounterVec
	// served, not_modified, unauthorized
	Fetches *prometheus.CounterVec
	// created, exists, rejected, locked, unavailable
	Enrollments *prometheus.CounterVec
	// rotated, unknown
	Scans       *prometheus.CounterVec
	Triggers    *prometheus.CounterVec
	DeviceLogs  prometheus.Counter
	ArchiveSize prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_registrations_total",
			Help: "Device registration requests by outcome",
		}, []string{"outcome"}),
		Unregistrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_unregistrations_total",
			Help: "Device unregistration requests by outcome",
		}, []string{"outcome"}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_pass_fetches_total",
			Help: "Pass fetches by outcome",
		}, []string{"outcome"}),
		Enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_enrollments_total",
			Help: "Enrollment attempts by outcome",
		}, []string{"outcome"}),
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_scans_total",
			Help: "Barcode scans by outcome",
		}, []string{"outcome"}),
		Triggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilid_sync_client_triggers_total",
			Help: "Refreshes requested by internal clients",
		}, []string{"client", "outcome"}),
		DeviceLogs: f.NewCounter(prometheus.CounterOpts{
			Name: "mobilid_sync_device_log_entries_total",
			Help: "Log entries reported by wallet clients",
		}),
		ArchiveSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobilid_sync_archive_bytes",
			Help:    "Size of served pass archives",
			Buckets: prometheus.ExponentialBuckets(8<<10, 2, 8),
		}),
	}
}

func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementUnregistration(outcome string) {
	if m != nil {
		m.Unregistrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementFetch(outcome string) {
	if m != nil {
		m.Fetches.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementEnrollment(outcome string) {
	if m != nil {
		m.Enrollments.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementScan(outcome string) {
	if m != nil {
		m.Scans.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTrigger(client, outcome string) {
	if m != nil {
		m.Triggers.WithLabelValues(client, outcome).Inc()
	}
}

func (m *Metrics) AddDeviceLogs(n int) {
	if m != nil {
		m.DeviceLogs.Add(float64(n))
	}
}

func (m *Metrics) ObserveArchive(size int) {
	if m != nil {
		m.ArchiveSize.Observe(float64(size))
	}
}
