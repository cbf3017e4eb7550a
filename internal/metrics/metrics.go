// Package metrics exposes Prometheus instrumentation for the catalog engine
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search results
const (
	SearchHit       = "hit"
	SearchGenerated = "generated"
	SearchMiss      = "miss"
)

// Generation outcomes
const (
	OutcomeGenerated   = "generated"
	OutcomePlaceholder = "placeholder"
	OutcomeUnavailable = "unavailable"
	OutcomeUnpersisted = "unpersisted"
)

// Collector holds the engine metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	searchTotal         *prometheus.CounterVec
	generationTotal     *prometheus.CounterVec
	generationShared    prometheus.Counter
	pantryDuration      prometheus.Histogram
	pantryResults       prometheus.Histogram
}

// NewCollector registers the metrics on a fresh registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		searchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_search_total",
				Help: "Catalog searches by result",
			},
			[]string{"result"},
		),
		generationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_generation_total",
				Help: "Entry generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		generationShared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_generation_shared_total",
				Help: "Callers that received another caller's in-flight generation",
			},
		),
		pantryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_pantry_match_duration_seconds",
				Help:    "Pantry match duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		pantryResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_pantry_match_results",
				Help:    "Number of entries returned by a pantry match",
				Buckets: prometheus.LinearBuckets(0, 5, 5),
			},
		),
	}
}

// Registry returns the underlying registry for gathering in tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSearch counts a search by result: hit, generated or miss
func (c *Collector) RecordSearch(result string) {
	if c == nil {
		return
	}
	c.searchTotal.WithLabelValues(result).Inc()
}

// RecordGeneration counts a generation attempt by outcome
func (c *Collector) RecordGeneration(outcome string) {
	if c == nil {
		return
	}
	c.generationTotal.WithLabelValues(outcome).Inc()
}

// RecordSharedGeneration counts a caller served by an in-flight generation
func (c *Collector) RecordSharedGeneration() {
	if c == nil {
		return
	}
	c.generationShared.Inc()
}

// ObservePantry records one pantry match
func (c *Collector) ObservePantry(d time.Duration, results int) {
	if c == nil {
		return
	}
	c.pantryDuration.Observe(d.Seconds())
	c.pantryResults.Observe(float64(results))
}

// Middleware records request counts and latency per route
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.httpRequestsTotal.WithLabelValues(ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
