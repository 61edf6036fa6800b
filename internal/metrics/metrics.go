// Package metrics exposes tracker counters and gauges in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rossigee/job-application-tracker/pkg/types"
)

// Operation labels
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Recorder holds the tracker metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	mutations       *prometheus.CounterVec
	persistFailures prometheus.Counter
	applications    *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobtracker",
			Name:      "mutations_total",
			Help:      "Record store mutations that were persisted, by operation.",
		}, []string{"operation"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jobtracker",
			Name:      "persist_failures_total",
			Help:      "Mutations rejected because the snapshot could not be written.",
		}),
		applications: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "jobtracker",
			Name:      "applications",
			Help:      "Tracked applications by status.",
		}, []string{"status"}),
	}

	r.registry.MustRegister(
		r.mutations,
		r.persistFailures,
		r.applications,
		collectors.NewGoCollector(),
	)
	return r
}

// ObserveMutation counts a persisted mutation
func (r *Recorder) ObserveMutation(op string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op).Inc()
}

// ObservePersistFailure counts a mutation that failed to persist
func (r *Recorder) ObservePersistFailure() {
	if r == nil {
		return
	}
	r.persistFailures.Inc()
}

// SetApplications publishes per-status counts
func (r *Recorder) SetApplications(stats types.Stats) {
	if r == nil {
		return
	}
	r.applications.WithLabelValues(string(types.StatusApplied)).Set(float64(stats.Applied))
	r.applications.WithLabelValues(string(types.StatusInterviewing)).Set(float64(stats.Interviewing))
	r.applications.WithLabelValues(string(types.StatusOffer)).Set(float64(stats.Offers - stats.Accepted))
	r.applications.WithLabelValues(string(types.StatusAccepted)).Set(float64(stats.Accepted))
	r.applications.WithLabelValues(string(types.StatusRejected)).Set(float64(stats.Rejected))
}

// Handler serves the registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// MutationCounter returns the counter for op
func (r *Recorder) MutationCounter(op string) prometheus.Counter {
	return r.mutations.WithLabelValues(op)
}

// PersistFailureCounter returns the persist failure counter
func (r *Recorder) PersistFailureCounter() prometheus.Counter {
	return r.persistFailures
}
