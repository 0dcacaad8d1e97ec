// Package metrics provides Prometheus metrics for the emulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the emulator.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ConnectionsActive   prometheus.Gauge
	BotsConnected       prometheus.Gauge
	EnvelopesDispatched *prometheus.CounterVec
	EnvelopeAckDuration *prometheus.HistogramVec
	AckTimeouts         prometheus.Counter
	MessagesTotal       *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_http_requests_total",
				Help: "Total HTTP requests by route and status.",
			},
			[]string{"route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emulator_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emulator_socket_connections_active",
				Help: "Number of live bot transport connections.",
			},
		),
		BotsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emulator_bots_connected",
				Help: "Number of bots currently in status connected.",
			},
		),
		EnvelopesDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_envelopes_dispatched_total",
				Help: "Total envelopes dispatched by type.",
			},
			[]string{"type"},
		),
		EnvelopeAckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emulator_envelope_ack_duration_seconds",
				Help:    "Time from envelope dispatch to ack receipt, by type.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"type"},
		),
		AckTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "emulator_envelope_ack_timeouts_total",
				Help: "Total envelopes whose ack was never received within the timeout.",
			},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_messages_total",
				Help: "Total messages stored by source.",
			},
			[]string{"source"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emulator_errors_total",
				Help: "Total errors by component and kind.",
			},
			[]string{"component", "kind"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ConnectionsActive,
		m.BotsConnected,
		m.EnvelopesDispatched,
		m.EnvelopeAckDuration,
		m.AckTimeouts,
		m.MessagesTotal,
		m.ErrorsTotal,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest increments the request counter and observes duration.
func (m *Metrics) RecordHTTPRequest(route, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordEnvelopeDispatched increments the dispatched-envelope counter.
func (m *Metrics) RecordEnvelopeDispatched(envelopeType string) {
	m.EnvelopesDispatched.WithLabelValues(envelopeType).Inc()
}

// ObserveAck records the latency between dispatch and ack for an envelope type.
func (m *Metrics) ObserveAck(envelopeType string, seconds float64) {
	m.EnvelopeAckDuration.WithLabelValues(envelopeType).Observe(seconds)
}

// RecordAckTimeout increments the ack-timeout counter.
func (m *Metrics) RecordAckTimeout() {
	m.AckTimeouts.Inc()
}

// RecordMessage increments the message counter for a source ("bot" or "user").
func (m *Metrics) RecordMessage(source string) {
	m.MessagesTotal.WithLabelValues(source).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, kind string) {
	m.ErrorsTotal.WithLabelValues(component, kind).Inc()
}

// SetConnectionsActive sets the live-connection gauge.
func (m *Metrics) SetConnectionsActive(n float64) {
	m.ConnectionsActive.Set(n)
}

// SetBotsConnected sets the connected-bots gauge.
func (m *Metrics) SetBotsConnected(n float64) {
	m.BotsConnected.Set(n)
}
