// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "HTTP requests currently being served."},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the tenant rate limiter."},
		[]string{"tenant"},
	)

	// Solves counts finished solves by solver and status (heuristic, infeasible)
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cflp_solves_total", Help: "Finished solves by solver and status."},
		[]string{"solver", "status"},
	)
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cflp_solve_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}},
		[]string{"solver"},
	)
	FacilitiesOpened = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cflp_facilities_opened", Help: "Facilities open in the final solution.", Buckets: prometheus.LinearBuckets(0, 2, 10)},
	)
	FacilitiesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cflp_facilities_removed_total", Help: "Facilities removed by the local improver."},
	)
	StreamClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cflp_stream_clients", Help: "Connected event stream clients."},
		[]string{"transport"}, // sse, ws
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests, HTTPDuration, HTTPInFlight, RateLimited,
			Solves, SolveDuration, FacilitiesOpened, FacilitiesRemoved, StreamClients,
			WebhookDeliveries, WebhookLatency,
		)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
