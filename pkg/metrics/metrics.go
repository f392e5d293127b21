// Package metrics exposes Prometheus collectors for the pharmacy service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	UsageOperations   *prometheus.CounterVec
	InsufficientStock *prometheus.CounterVec
	StockLevel        *prometheus.GaugeVec
	FulfillmentFees   *prometheus.CounterVec
	LowStockAlerts    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	APIRequestCounter *prometheus.CounterVec
	APIErrorCounter   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		UsageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_operations_total",
				Help:      "Usage record operations by kind and outcome",
			},
			[]string{"operation", "result"},
		),

		InsufficientStock: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insufficient_stock_total",
				Help:      "Stock decrements rejected for insufficient stock",
			},
			[]string{"pharmacy"},
		),

		StockLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stock_level",
				Help:      "Last observed stock level per medication and pharmacy",
			},
			[]string{"medication", "pharmacy"},
		),

		FulfillmentFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fulfillment_fee_units_total",
				Help:      "Units dispensed that carried a fulfillment fee",
			},
			[]string{"company"},
		),

		LowStockAlerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "low_stock_alerts_total",
				Help:      "Low stock events received per medication and pharmacy",
			},
			[]string{"medication", "pharmacy"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		APIRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route"},
		),

		APIErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUsage counts a usage operation outcome.
func (m *Metrics) ObserveUsage(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.UsageOperations.WithLabelValues(operation, result).Inc()
}

// ObserveInsufficientStock counts a rejected decrement.
func (m *Metrics) ObserveInsufficientStock(pharmacy string) {
	if m == nil {
		return
	}
	m.InsufficientStock.WithLabelValues(pharmacy).Inc()
}

// SetStockLevel records the current level of a pair.
func (m *Metrics) SetStockLevel(medication, pharmacy string, level int) {
	if m == nil {
		return
	}
	m.StockLevel.WithLabelValues(medication, pharmacy).Set(float64(level))
}

// ObserveFeeUnits counts fee-bearing units for a company.
func (m *Metrics) ObserveFeeUnits(company string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.FulfillmentFees.WithLabelValues(company).Add(float64(units))
}

// ObserveLowStockAlert counts a received low stock event
func (m *Metrics) ObserveLowStockAlert(medication, pharmacy string) {
	if m == nil {
		return
	}
	m.LowStockAlerts.WithLabelValues(medication, pharmacy).Inc()
}

// Middleware tracks request metrics using the chi route pattern as label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(rec.status)

		m.APIRequestCounter.WithLabelValues(r.Method, route).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		if rec.status >= http.StatusBadRequest {
			m.APIErrorCounter.WithLabelValues(r.Method, route, status).Inc()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
