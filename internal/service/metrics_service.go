package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service is a
// valid no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	schedulerRuns   *prometheus.CounterVec
	schedulerTime   *prometheus.HistogramVec
	schedulerScore  prometheus.Gauge
	unassigned      prometheus.Histogram
	jobs            *prometheus.CounterVec
	exports         *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Scheduler runs by phase and outcome",
		}, []string{"phase", "outcome"}),
		schedulerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Wall time of scheduler phases",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"phase"}),
		schedulerScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_score",
			Help: "Quality score of the most recent proposal",
		}),
		unassigned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_unassigned_sections",
			Help:    "Sections left unassigned per run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_optimize_jobs_total",
			Help: "Queued optimization jobs by final status",
		}, []string{"status"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_exports_total",
			Help: "Rendered schedule exports by format and storage provider",
		}, []string{"format", "provider"}),
	}
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.schedulerRuns, m.schedulerTime, m.schedulerScore, m.unassigned, m.jobs, m.exports,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSchedulerRun records one generate or optimize phase. outcome is the
// schedule status, or "budget_exceeded"/"cancelled" when the run stopped early.
func (m *MetricsService) ObserveSchedulerRun(phase, outcome string, duration time.Duration, score float64, unassigned int) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(phase, outcome).Inc()
	m.schedulerTime.WithLabelValues(phase).Observe(duration.Seconds())
	m.schedulerScore.Set(score)
	m.unassigned.Observe(float64(unassigned))
}

// RecordSchedulerFailure counts a run rejected before producing a schedule.
func (m *MetricsService) RecordSchedulerFailure(phase string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(phase, "error").Inc()
}

// RecordOptimizeJob counts a finished background optimization.
func (m *MetricsService) RecordOptimizeJob(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// RecordExport counts a rendered export.
func (m *MetricsService) RecordExport(format, provider string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, provider).Inc()
}
