// Package telemetry exports operation counters and latencies in the
// Prometheus text format. It implements driven.Observer.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Observer = (*Metrics)(nil)

const namespace = "docqa"

// Metrics holds the collectors on a private registry, so tests and
// multiple servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	ingests       *prometheus.CounterVec
	ingestChunks  prometheus.Counter
	ingestSeconds prometheus.Histogram
	deletes       *prometheus.CounterVec
	deletedChunks prometheus.Counter
	queries       *prometheus.CounterVec
	queryChunks   prometheus.Histogram
	phaseSeconds  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpSeconds   *prometheus.HistogramVec
}

// New creates the collectors and registers them, with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingestions_total",
			Help: "Ingestion attempts by outcome.",
		}, []string{"status"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingested_chunks_total",
			Help: "Chunks written by successful ingestions.",
		}),
		ingestSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ingestion_duration_seconds",
			Help:    "Wall time of ingestion attempts.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deletions_total",
			Help: "Document deletions by outcome.",
		}, []string{"status"}),
		deletedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deleted_chunks_total",
			Help: "Chunks removed by deletions.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total",
			Help: "Questions by outcome.",
		}, []string{"status"}),
		queryChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_chunks",
			Help:    "Chunks retrieved per question.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		phaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_phase_duration_seconds",
			Help:    "Question latency by phase (retrieval, generation, total).",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingests, m.ingestChunks, m.ingestSeconds,
		m.deletes, m.deletedChunks,
		m.queries, m.queryChunks, m.phaseSeconds,
		m.httpRequests, m.httpSeconds,
	)
	return m
}

// IngestFinished records one ingestion attempt.
func (m *Metrics) IngestFinished(status string, chunks int, elapsed time.Duration) {
	m.ingests.WithLabelValues(status).Inc()
	m.ingestChunks.Add(float64(chunks))
	m.ingestSeconds.Observe(elapsed.Seconds())
}

// DeleteFinished records one deletion attempt.
func (m *Metrics) DeleteFinished(status string, removed int) {
	m.deletes.WithLabelValues(status).Inc()
	m.deletedChunks.Add(float64(removed))
}

// QueryFinished records one question.
func (m *Metrics) QueryFinished(status string, chunks int, retrieval, generation, total time.Duration) {
	m.queries.WithLabelValues(status).Inc()
	m.queryChunks.Observe(float64(chunks))
	m.phaseSeconds.WithLabelValues("retrieval").Observe(retrieval.Seconds())
	m.phaseSeconds.WithLabelValues("generation").Observe(generation.Seconds())
	m.phaseSeconds.WithLabelValues("total").Observe(total.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware counts requests by matched route, so path parameters do
// not explode the label set.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
