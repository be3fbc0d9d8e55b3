// Package metrics exposes Prometheus collectors for the client: API request
// counts and latencies, refresh outcomes and dropped UI events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "writedesk_client"

// Refresh outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshesTotal  *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by operation and status.",
			},
			[]string{"op", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Silent refresh calls by outcome; shared counts callers that joined an in-flight refresh.",
			},
			[]string{"outcome"},
		),
		eventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Events not delivered to a slow subscriber.",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.refreshesTotal, m.eventsDropped)
	}
	return m
}

// ObserveRequest records one API call. status is the HTTP status code, or 0
// when no response was received.
func (m *Metrics) ObserveRequest(op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(op, label).Inc()
	m.requestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveRefresh records a refresh outcome.
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDroppedEvent records an event lost because a subscriber was slow.
func (m *Metrics) ObserveDroppedEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(kind).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
