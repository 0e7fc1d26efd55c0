package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Accept outcomes recorded by swap_accept_total.
const (
	AcceptOutcomeMatched        = "matched"
	AcceptOutcomeAlreadyMatched = "already_matched"
	AcceptOutcomeRejected       = "rejected"
	AcceptOutcomeNotFound       = "not_found"
	AcceptOutcomeError          = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	swapAccepts       *prometheus.CounterVec
	swapCreates       *prometheus.CounterVec
	availabilityScan  *prometheus.HistogramVec
	availabilityFree  prometheus.Histogram
	notificationsSent *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	swapAccepts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_accept_total",
		Help: "Swap accept attempts by outcome",
	}, []string{"outcome"})

	swapCreates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_create_total",
		Help: "Swap requests created by kind",
	}, []string{"kind"})

	availabilityScan := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "availability_scan_seconds",
		Help:    "Duration of free-teacher lookups",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	availabilityFree := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_free_teachers",
		Help:    "Number of free teachers returned per lookup",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	notificationsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_notifications_total",
		Help: "Swap notifications by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		swapAccepts, swapCreates, availabilityScan, availabilityFree, notificationsSent, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		swapAccepts:       swapAccepts,
		swapCreates:       swapCreates,
		availabilityScan:  availabilityScan,
		availabilityFree:  availabilityFree,
		notificationsSent: notificationsSent,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// RecordSwapAccept counts an accept attempt by outcome.
func (m *MetricsService) RecordSwapAccept(outcome string) {
	if m == nil {
		return
	}
	m.swapAccepts.WithLabelValues(outcome).Inc()
}

// RecordSwapCreate counts a new request by kind.
func (m *MetricsService) RecordSwapCreate(kind string) {
	if m == nil {
		return
	}
	m.swapCreates.WithLabelValues(kind).Inc()
}

// ObserveAvailabilityScan records lookup latency; source is "store" or "cache".
func (m *MetricsService) ObserveAvailabilityScan(source string, duration time.Duration, free int) {
	if m == nil {
		return
	}
	m.availabilityScan.WithLabelValues(source).Observe(duration.Seconds())
	m.availabilityFree.Observe(float64(free))
}

// RecordNotification counts a delivery result.
func (m *MetricsService) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(result).Inc()
}
