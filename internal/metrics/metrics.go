// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airroutes/internal/store"
)

const namespace = "airroutes"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	mutations    *prometheus.CounterVec
	queries      *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	changes      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Mutations by entity, operation and result.
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Store mutations by entity, operation and result",
		}, []string{"entity", "op", "result"}),

		queries: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query engine latency by query kind",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"kind"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_changes_total",
			Help:      "Successful store changes by entity and operation",
		}, []string{"entity", "op"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStore exports gauges read from s on every scrape and counts its changes.
func (m *Metrics) ObserveStore(s *store.Store) {
	f := promauto.With(m.registry)
	gauge := func(name, help string, value func(store.Stats) float64) {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(s.Stats()) })
	}

	gauge("airlines", "Airlines held in the store", func(st store.Stats) float64 { return float64(st.Airlines) })
	gauge("airports", "Airports held in the store", func(st store.Stats) float64 { return float64(st.Airports) })
	gauge("routes", "Routes held in the store", func(st store.Stats) float64 { return float64(st.Routes) })
	gauge("index_rebuilds", "Full index rebuilds since start", func(st store.Stats) float64 { return float64(st.Rebuilds) })
	gauge("last_rebuild_seconds", "Duration of the most recent index rebuild", func(st store.Stats) float64 { return st.LastRebuild.Seconds() })

	s.OnChange(func(c store.Change) {
		m.changes.WithLabelValues(string(c.Entity), string(c.Op)).Inc()
	})
}

// RecordMutation counts a mutation attempt. result is "ok" or a failure class.
func (m *Metrics) RecordMutation(entity, op, result string) {
	m.mutations.WithLabelValues(entity, op, result).Inc()
}

// ObserveQuery records how long a query of the given kind took.
func (m *Metrics) ObserveQuery(kind string, d time.Duration) {
	m.queries.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
