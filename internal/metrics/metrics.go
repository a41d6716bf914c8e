// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors used by the registration service.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Submissions   *prometheus.CounterVec
	ListLatency   prometheus.Histogram
}

// New creates the collectors and registers them with reg.  Tests pass a
// fresh prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_review_transitions_total",
			Help: "Review attempts by kind, target status and outcome",
		}, []string{"kind", "status", "outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_notifications_total",
			Help: "Notification dispatches by template and outcome",
		}, []string{"template", "outcome"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_submissions_total",
			Help: "Accepted registrations by kind",
		}, []string{"kind"}),
		ListLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "festreg_aggregate_seconds",
			Help:    "Time spent fetching and merging both subsystems",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveTransition counts one approve/reject attempt.  Nil receivers are
// ignored so callers can run without metrics.
func (m *Metrics) ObserveTransition(kind, status, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind, status, outcome).Inc()
}

// ObserveNotification counts one notification dispatch.
func (m *Metrics) ObserveNotification(template string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.Notifications.WithLabelValues(template, outcome).Inc()
}

// ObserveSubmission counts one accepted registration.
func (m *Metrics) ObserveSubmission(kind string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind).Inc()
}

// ObserveList records how long an aggregation took.
func (m *Metrics) ObserveList(d time.Duration) {
	if m == nil {
		return
	}
	m.ListLatency.Observe(d.Seconds())
}
