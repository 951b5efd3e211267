// Package metrics is the ambient Prometheus instrumentation layer:
// webhook outcomes, job tick results, and forge call latency, exposed on
// the server's dedicated metrics port via a registered CounterVec/
// Histogram set and promhttp.Handler().
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every counter/histogram the bot emits. Built once at
// startup and threaded through the webhook handler, the Job Engine, and
// the forge clients.
type Registry struct {
	WebhookEvents     *prometheus.CounterVec
	JobTicks          *prometheus.CounterVec
	ForgeCallLatency  *prometheus.HistogramVec
	SuggestionsPosted *prometheus.CounterVec

	registry *prometheus.Registry
}

// New constructs and registers a Registry against a fresh
// prometheus.Registry, so repeated test construction never panics on a
// "duplicate metrics collector registration" against the global default
// registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuebot_webhook_events_total",
			Help: "Webhook events received, by forge and outcome.",
		}, []string{"forge", "kind", "outcome"}),

		JobTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuebot_job_ticks_total",
			Help: "Job Engine ticks, by job type and result.",
		}, []string{"job_type", "result"}),

		ForgeCallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "issuebot_forge_call_duration_seconds",
			Help:    "Latency of outbound forge API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"forge", "method"}),

		SuggestionsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuebot_suggestions_posted_total",
			Help: "Suggestion Path replies, by destination.",
		}, []string{"destination"}),
	}

	reg.MustRegister(r.WebhookEvents, r.JobTicks, r.ForgeCallLatency, r.SuggestionsPosted)
	r.registry = reg
	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
