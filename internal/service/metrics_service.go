package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation plus simple atomic
// aggregates for the admin snapshot endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	behaviorEvents  *prometheus.CounterVec
	goalsCompleted  prometheus.Counter
	invoicesPaid    prometheus.Counter
	reportsFinished *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	behaviorEventCount   uint64
	goalCompletedCount   uint64
	invoicePaidCount     uint64
	reportCount          uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	behaviorEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "behavior_events_recorded_total",
		Help: "Behaviour events recorded, by polarity",
	}, []string{"polarity"})

	goalsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "character_goals_completed_total",
		Help: "Character goals that reached completed status",
	})

	invoicesPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_paid_total",
		Help: "Invoices confirmed as paid",
	})

	reportsFinished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_finished_total",
		Help: "Background report jobs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHitRatio, cacheHits, cacheMisses,
		behaviorEvents, goalsCompleted, invoicesPaid, reportsFinished, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		behaviorEvents:  behaviorEvents,
		goalsCompleted:  goalsCompleted,
		invoicesPaid:    invoicesPaid,
		reportsFinished: reportsFinished,
	}
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordBehaviorEvent counts a recorded behaviour event.
func (m *MetricsService) RecordBehaviorEvent(polarity models.BehaviorPolarity) {
	if m == nil {
		return
	}
	m.behaviorEvents.WithLabelValues(string(polarity)).Inc()
	atomic.AddUint64(&m.behaviorEventCount, 1)
}

// RecordGoalCompleted counts a goal auto-completion.
func (m *MetricsService) RecordGoalCompleted() {
	if m == nil {
		return
	}
	m.goalsCompleted.Inc()
	atomic.AddUint64(&m.goalCompletedCount, 1)
}

// RecordInvoicePaid counts a confirmed invoice.
func (m *MetricsService) RecordInvoicePaid() {
	if m == nil {
		return
	}
	m.invoicesPaid.Inc()
	atomic.AddUint64(&m.invoicePaidCount, 1)
}

// RecordReportFinished counts a finished or failed report job.
func (m *MetricsService) RecordReportFinished(outcome string) {
	if m == nil {
		return
	}
	m.reportsFinished.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.reportCount, 1)
}

// Snapshot returns aggregated metrics for the admin analytics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BehaviorEventsRecorded:   atomic.LoadUint64(&m.behaviorEventCount),
		GoalsCompleted:           atomic.LoadUint64(&m.goalCompletedCount),
		InvoicesPaid:             atomic.LoadUint64(&m.invoicePaidCount),
		ReportsGenerated:         atomic.LoadUint64(&m.reportCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
