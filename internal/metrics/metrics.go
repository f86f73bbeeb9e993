// Package metrics exposes the Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset the services and middleware depend on.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordBackend(backend string)
	RecordNotification(kind, outcome string)
	RecordRateLimited(route string)
}

type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	backend       *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// NewCollector registers every collector on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenwich_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greenwich_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenwich_store_backend",
			Help: "1 for the persistence backend that served the last call, 0 otherwise.",
		}, []string{"backend"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenwich_notifications_total",
			Help: "Notification emissions by type and outcome.",
		}, []string{"type", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenwich_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.backend,
		c.notifications,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordBackend(backend string) {
	for _, b := range []string{"connected", "memory"} {
		v := 0.0
		if b == backend {
			v = 1
		}
		c.backend.WithLabelValues(b).Set(v)
	}
}

func (c *Collector) RecordNotification(kind, outcome string) {
	c.notifications.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything; used where no registry is wired.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordBackend(string)                             {}
func (Nop) RecordNotification(string, string)                {}
func (Nop) RecordRateLimited(string)                         {}
