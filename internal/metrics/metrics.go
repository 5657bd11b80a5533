// Package metrics exposes Prometheus collectors for the host protocol, the
// station store, catalog search, sessions and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stationcu"

// Metrics holds every collector. It implements hostproto.Observer and
// eventbus.MutationObserver.
type Metrics struct {
	HostMessages      *prometheus.CounterVec
	HostDropped       *prometheus.CounterVec
	Handshakes        *prometheus.CounterVec
	HandshakeDuration prometheus.Histogram
	Mutations         *prometheus.CounterVec
	CatalogSearches   prometheus.Counter
	CatalogResults    prometheus.Histogram
	SessionsActive    prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HostMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_messages_total",
			Help:      "Host protocol messages by direction and method",
		}, []string{"direction", "method"}),

		HostDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_messages_dropped_total",
			Help:      "Inbound host messages ignored by the protocol",
		}, []string{"reason"}),

		Handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_handshakes_total",
			Help:      "Finished host handshakes by outcome",
		}, []string{"outcome"}),

		HandshakeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "host_handshake_duration_seconds",
			Help:      "Time from the first ready to init or standalone",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),

		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Station store mutations by event type",
		}, []string{"event_type", "category"}),

		CatalogSearches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_searches_total",
			Help:      "Catalog searches performed",
		}),

		CatalogResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_search_results",
			Help:      "Entries returned per catalog search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),

		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live widget sessions",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) MessageSent(method string) {
	m.HostMessages.WithLabelValues("out", method).Inc()
}

func (m *Metrics) MessageReceived(method string) {
	m.HostMessages.WithLabelValues("in", method).Inc()
}

func (m *Metrics) MessageDropped(reason string) {
	m.HostDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) HandshakeFinished(outcome string, elapsed time.Duration) {
	m.Handshakes.WithLabelValues(outcome).Inc()
	m.HandshakeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMutation(eventType, category string) {
	m.Mutations.WithLabelValues(eventType, category).Inc()
}

// ObserveSearch records one catalog search returning n entries.
func (m *Metrics) ObserveSearch(n int) {
	m.CatalogSearches.Inc()
	m.CatalogResults.Observe(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
