// Package metrics exposes Prometheus counters for the API, the fetch
// engines and the recipe extractor.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/recipescrape/engine"
	"github.com/use-agent/recipescrape/recipe"
)

const namespace = "recipescrape"

// Collector owns a private registry so several instances can coexist in
// one process (tests, embedded servers).
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec

	extractions   *prometheus.CounterVec
	blocksSkipped *prometheus.CounterVec
	notFound      prometheus.Counter
	fetches       *prometheus.CounterVec
}

var (
	_ recipe.Observer = (*Collector)(nil)
	_ engine.Observer = (*Collector)(nil)
)

// NewCollector creates a Collector with Go runtime and process collectors
// already registered.
func NewCollector(version string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	c.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_requests",
		Help:      "Number of in-flight HTTP requests",
	})
	c.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_info",
			Help:      "Service information",
		},
		[]string{"version"},
	)
	c.extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Recipes extracted, by the path that produced them",
		},
		[]string{"source"},
	)
	c.blocksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jsonld_blocks_skipped_total",
			Help:      "JSON-LD blocks ignored during extraction",
		},
		[]string{"reason"},
	)
	c.notFound = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recipes_not_found_total",
		Help:      "Pages where no recipe content was found",
	})
	c.fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Engine fetch attempts by outcome",
		},
		[]string{"engine", "outcome"},
	)

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.activeRequests,
		c.serviceInfo,
		c.extractions,
		c.blocksSkipped,
		c.notFound,
		c.fetches,
	)
	c.serviceInfo.WithLabelValues(version).Set(1)

	return c
}

// Registry returns the registry backing this Collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Middleware returns gin middleware that records request counts and latency.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		c.activeRequests.Inc()
		defer c.activeRequests.Dec()

		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
	return gin.WrapH(h)
}

func (c *Collector) BlockSkipped(reason string) {
	c.blocksSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) Extracted(source recipe.Source) {
	c.extractions.WithLabelValues(string(source)).Inc()
}

func (c *Collector) NotFound() {
	c.notFound.Inc()
}

func (c *Collector) Fetched(engineName string, err error) {
	c.fetches.WithLabelValues(engineName, Outcome(err)).Inc()
}

// Outcome classifies a fetch error into a low-cardinality label value.
func Outcome(err error) string {
	var status *engine.StatusError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &status):
		return "status_" + strconv.Itoa(status.StatusCode/100) + "xx"
	case errors.Is(err, engine.ErrNotHTML):
		return "not_html"
	default:
		return "error"
	}
}
