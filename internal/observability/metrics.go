package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes prometheus counters for the booking core and its HTTP surface.
type Metrics struct {
	booked          prometheus.Counter
	rejected        *prometheus.CounterVec
	canceled        prometheus.Counter
	notifications   *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg, or on the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		booked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Appointments successfully booked",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_booking_rejections_total",
			Help: "Booking attempts refused, by error code",
		}, []string{"code"}),
		canceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_canceled_total",
			Help: "Appointments transitioned to canceled",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification deliveries by kind and outcome",
		}, []string{"kind", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by code",
		}, []string{"method", "route", "code"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.booked, m.rejected, m.canceled, m.notifications, m.requests, m.requestDuration, m.errors)
	return m
}

// RecordBooked counts a created appointment.
func (m *Metrics) RecordBooked() {
	if m == nil {
		return
	}
	m.booked.Inc()
}

// RecordBookingRejected counts a refused booking by error code.
func (m *Metrics) RecordBookingRejected(code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(code).Inc()
}

// RecordCanceled counts a canceled appointment.
func (m *Metrics) RecordCanceled() {
	if m == nil {
		return
	}
	m.canceled.Inc()
}

// RecordNotification counts a notification outcome, e.g. ("booking", "sent").
func (m *Metrics) RecordNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, status).Inc()
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}
