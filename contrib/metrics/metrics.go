// Package metrics exports entity manager metrics to Prometheus.
//
//	c := metrics.New()
//	prometheus.MustRegister(c)
//	m := entity.MustNewManager(g, entity.WithMetrics(c))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Breeze/breeze.sharp-sub000/entity"
)

// Collector implements entity.MetricsCollector and prometheus.Collector.
type Collector struct {
	attached      prometheus.Counter
	detached      prometheus.Counter
	imported      prometheus.Counter
	queries       *prometheus.CounterVec
	queryEntities *prometheus.CounterVec
	queryLatency  *prometheus.HistogramVec
	saves         *prometheus.CounterVec
	savedEntities prometheus.Counter
	saveLatency   prometheus.Histogram
	cached        prometheus.Gauge
}

var (
	_ entity.MetricsCollector = (*Collector)(nil)
	_ prometheus.Collector    = (*Collector)(nil)
)

type config struct {
	namespace string
	labels    prometheus.Labels
	buckets   []float64
}

// Option configures a Collector.
type Option func(*config)

// WithNamespace sets the metric namespace. The default is "breeze".
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithConstLabels adds constant labels to every metric, for example the
// name of the manager when several share a registry.
func WithConstLabels(l prometheus.Labels) Option {
	return func(c *config) { c.labels = l }
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b ...float64) Option {
	return func(c *config) { c.buckets = b }
}

// New returns an unregistered collector.
func New(opts ...Option) *Collector {
	cfg := &config{namespace: "breeze", buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(cfg)
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace, Name: name, Help: help, ConstLabels: cfg.labels,
		})
	}
	return &Collector{
		attached: counter("entities_attached_total", "Entities attached to the cache."),
		detached: counter("entities_detached_total", "Entities detached from the cache."),
		imported: counter("entities_imported_total", "Entities merged by imports."),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace, Name: "queries_total", Help: "Executed queries.", ConstLabels: cfg.labels,
		}, []string{"resource", "status"}),
		queryEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace, Name: "query_entities_total", Help: "Entities merged from query results.", ConstLabels: cfg.labels,
		}, []string{"resource"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace, Name: "query_duration_seconds", Help: "Latency of queries.", ConstLabels: cfg.labels, Buckets: cfg.buckets,
		}, []string{"resource"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace, Name: "saves_total", Help: "Executed saves.", ConstLabels: cfg.labels,
		}, []string{"status"}),
		savedEntities: counter("saved_entities_total", "Entities sent to the data service by saves."),
		saveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.namespace, Name: "save_duration_seconds", Help: "Latency of saves.", ConstLabels: cfg.labels, Buckets: cfg.buckets,
		}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.namespace, Name: "cached_entities", Help: "Entities held in the cache.", ConstLabels: cfg.labels,
		}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.attached, c.detached, c.imported,
		c.queries, c.queryEntities, c.queryLatency,
		c.saves, c.savedEntities, c.saveLatency,
		c.cached,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

// RecordAttach implements entity.MetricsCollector.
func (c *Collector) RecordAttach(n int) { c.attached.Add(float64(n)) }

// RecordDetach implements entity.MetricsCollector.
func (c *Collector) RecordDetach(n int) { c.detached.Add(float64(n)) }

// RecordImport implements entity.MetricsCollector.
func (c *Collector) RecordImport(n int) { c.imported.Add(float64(n)) }

// SetCached implements entity.MetricsCollector.
func (c *Collector) SetCached(n int) { c.cached.Set(float64(n)) }

// RecordQuery implements entity.MetricsCollector.
func (c *Collector) RecordQuery(resource string, d time.Duration, n int, err error) {
	c.queries.WithLabelValues(resource, status(err)).Inc()
	c.queryEntities.WithLabelValues(resource).Add(float64(n))
	c.queryLatency.WithLabelValues(resource).Observe(d.Seconds())
}

// RecordSave implements entity.MetricsCollector.
func (c *Collector) RecordSave(n int, d time.Duration, err error) {
	c.saves.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.savedEntities.Add(float64(n))
	}
	c.saveLatency.Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
