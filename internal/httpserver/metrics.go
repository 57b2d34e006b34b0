package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's prometheus collectors, kept on a private
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	FragmentsServed *prometheus.CounterVec
	TrackEvents     *prometheus.CounterVec
	SitemapReloads  *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FragmentsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edetail",
			Name:      "fragments_served_total",
			Help:      "Page fragment requests by result.",
		}, []string{"result"}),
		TrackEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edetail",
			Name:      "track_events_total",
			Help:      "Tracking events received by event type.",
		}, []string{"type"}),
		SitemapReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edetail",
			Name:      "sitemap_reloads_total",
			Help:      "Sitemap reload attempts by result.",
		}, []string{"result"}),
	}
}

// ObserveReload counts one sitemap reload attempt.
func (m *Metrics) ObserveReload(err error) {
	if err != nil {
		m.SitemapReloads.WithLabelValues("error").Inc()
		return
	}
	m.SitemapReloads.WithLabelValues("ok").Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
