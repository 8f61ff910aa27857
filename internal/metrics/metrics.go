// Package metrics exposes Prometheus collectors for the publish pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors.
type Metrics struct {
	registry        *prometheus.Registry
	postsCreated    prometheus.Counter
	publishOps      *prometheus.CounterVec
	mediaUploads    *prometheus.CounterVec
	publishDuration prometheus.Histogram
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skythread_posts_created_total",
			Help: "Posts created on the network.",
		}),
		publishOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skythread_publish_operations_total",
			Help: "Publish operations by outcome kind.",
		}, []string{"outcome"}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skythread_media_uploads_total",
			Help: "Media uploads by outcome.",
		}, []string{"outcome"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skythread_publish_duration_seconds",
			Help:    "Duration of publish operations.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}
	m.registry.MustRegister(
		m.postsCreated,
		m.publishOps,
		m.mediaUploads,
		m.publishDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PostCreated counts one created post.
func (m *Metrics) PostCreated() {
	if m == nil {
		return
	}
	m.postsCreated.Inc()
}

// MediaUpload counts one upload attempt.
func (m *Metrics) MediaUpload(outcome string) {
	if m == nil {
		return
	}
	m.mediaUploads.WithLabelValues(outcome).Inc()
}

// PublishFinished records a finished operation. outcome is "success" or an
// error kind.
func (m *Metrics) PublishFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.publishOps.WithLabelValues(outcome).Inc()
	m.publishDuration.Observe(d.Seconds())
}
