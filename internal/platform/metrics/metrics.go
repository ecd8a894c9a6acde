// Package metrics exposes Prometheus instruments for the HTTP layer, the
// service queue, the export pipeline and the database pool.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bhis"

// Collector owns a private registry so several collectors can coexist in
// tests without duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	QueueEntries *prometheus.GaugeVec

	ExportsTotal   *prometheus.CounterVec
	ExportDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),

		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		QueueEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "entries",
			Help:      "Queue entries by status.",
		}, []string{"status"}),

		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "documents_total",
			Help:      "Document exports by type and result.",
		}, []string{"type", "result"}),

		ExportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Time spent running the export pipeline.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"type"}),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SetQueueCounts records the current queue tally.
func (c *Collector) SetQueueCounts(waiting, inProgress, completed, cancelled int) {
	c.QueueEntries.WithLabelValues("waiting").Set(float64(waiting))
	c.QueueEntries.WithLabelValues("in_progress").Set(float64(inProgress))
	c.QueueEntries.WithLabelValues("completed").Set(float64(completed))
	c.QueueEntries.WithLabelValues("cancelled").Set(float64(cancelled))
}

// ObserveExport records one export pipeline run.
func (c *Collector) ObserveExport(docType string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ExportsTotal.WithLabelValues(docType, result).Inc()
	c.ExportDuration.WithLabelValues(docType).Observe(elapsed.Seconds())
}

// PoolStats is read on every scrape.
type PoolStats func() (total, idle, acquired int32)

// RegisterPool exposes database pool gauges.
func (c *Collector) RegisterPool(stats PoolStats) {
	gauge := func(name, help string, pick func(total, idle, acquired int32) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stats()))
		})
	}
	c.registry.MustRegister(
		gauge("pool_total_conns", "Open database connections.", func(t, _, _ int32) int32 { return t }),
		gauge("pool_idle_conns", "Idle database connections.", func(_, i, _ int32) int32 { return i }),
		gauge("pool_acquired_conns", "Database connections in use.", func(_, _, a int32) int32 { return a }),
	)
}

// Middleware records request counts and latency keyed by route pattern,
// never by raw path.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c.InFlight.Inc()
			defer c.InFlight.Dec()

			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
