// Package metrics exports ledger telemetry to Prometheus. Collector
// implements the ledger service's MetricsCollector and owns its own registry,
// which the HTTP host serves on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides ledger metrics collection.
type Collector struct {
	registry *prometheus.Registry

	opDuration *prometheus.HistogramVec
	opResults  *prometheus.CounterVec
	errors     *prometheus.CounterVec
	volume     *prometheus.CounterVec
	custodied  prometheus.Gauge
}

// NewCollector creates a new ledger metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "custody"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Time taken by a ledger operation, including the outbound transfer",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"operation"},
	)

	c.opResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by result",
		},
		[]string{"operation", "result"},
	)

	c.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "errors_total",
			Help:      "Total number of failed ledger operations by error kind",
		},
		[]string{"operation", "kind"},
	)

	c.volume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "volume_total",
			Help:      "Total value moved by successful operations, in native units",
		},
		[]string{"operation"},
	)

	c.custodied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "custodied",
			Help:      "Custodial total after the most recent successful operation",
		},
	)

	c.registry.MustRegister(
		c.opDuration,
		c.opResults,
		c.errors,
		c.volume,
		c.custodied,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.opResults.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordError(operation, errType string) {
	c.errors.WithLabelValues(operation, errType).Inc()
}

func (c *Collector) RecordTransaction(operation string, amount uint64) {
	c.volume.WithLabelValues(operation).Add(float64(amount))
}

func (c *Collector) RecordCustodialTotal(total uint64) {
	c.custodied.Set(float64(total))
}
