// Package metrics provides observability for the web API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the city API and simulation loop.
type Metrics struct {
	// Request latency by route and method
	RequestDuration *prometheus.HistogramVec

	// Command outcomes by command and result
	CommandOutcome *prometheus.CounterVec

	// Random events applied, by category
	EventsTriggered *prometheus.CounterVec

	// Connected websocket clients
	ConnectedClients prometheus.Gauge
}

// New creates a Metrics instance with all city API metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metropole_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method"}),

		CommandOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "metropole_command_outcomes_total",
			Help: "Total simulation command outcomes by command and result",
		}, []string{"command", "result"}),

		EventsTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "metropole_events_triggered_total",
			Help: "Total random events applied to the city by category",
		}, []string{"category"}),

		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "metropole_websocket_clients",
			Help: "Currently connected websocket clients",
		}),
	}
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
	}
}

// IncrementCommand records a command outcome.
func (m *Metrics) IncrementCommand(command, result string) {
	if m != nil {
		m.CommandOutcome.WithLabelValues(command, result).Inc()
	}
}

// IncrementEvent records an applied random event.
func (m *Metrics) IncrementEvent(category string) {
	if m != nil {
		m.EventsTriggered.WithLabelValues(category).Inc()
	}
}

// SetConnectedClients records the websocket client count.
func (m *Metrics) SetConnectedClients(count int) {
	if m != nil {
		m.ConnectedClients.Set(float64(count))
	}
}
