// Package metrics owns the Prometheus registry of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the services and middlewares.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	bookings     *prometheus.CounterVec
	participants *prometheus.CounterVec
	lockWait     prometheus.Histogram
	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New registers all collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		bookings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Reservation create/update/delete calls by outcome.",
		}, []string{"op", "outcome"}),
		participants: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participant_operations_total",
			Help: "Participant add/remove/mark calls by outcome.",
		}, []string{"op", "outcome"}),
		lockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_room_lock_seconds",
			Help:    "Time spent inside the per-room locked section of a booking.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1, 3, 10},
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events handed to the broker by routing key and result.",
		}, []string{"routing_key", "result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Booking(op, outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Participant(op, outcome string) {
	if m == nil {
		return
	}
	m.participants.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) LockHeld(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}

func (m *Metrics) Event(routingKey string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.events.WithLabelValues(routingKey, result).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}
