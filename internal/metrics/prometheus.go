package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lab-manager/internal/backend"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration   *prometheus.HistogramVec
	RequestTotal      *prometheus.CounterVec
	BackendOperations *prometheus.CounterVec
	BackendDuration   *prometheus.HistogramVec
}

// New registers the lab metrics plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lab_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),

		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lab_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		BackendOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lab_backend_operations_total",
				Help: "Total table backend operations performed",
			},
			[]string{"operation", "table", "status"},
		),

		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lab_backend_operation_duration_seconds",
				Help:    "Time spent in table backend operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by route template.
// It must be installed with Router.Use so the matched route is known.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		status := strconv.Itoa(rec.status)
		m.RequestDuration.WithLabelValues(route, r.Method, status).Observe(time.Since(start).Seconds())
		m.RequestTotal.WithLabelValues(route, r.Method, status).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// InstrumentBackend wraps c so every call is counted and timed.
func (m *Metrics) InstrumentBackend(c backend.Client) backend.Client {
	return &instrumentedClient{next: c, m: m}
}

type instrumentedClient struct {
	next backend.Client
	m    *Metrics
}

func (c *instrumentedClient) observe(operation, table string, start time.Time, err error) {
	c.m.BackendDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	c.m.BackendOperations.WithLabelValues(operation, table, statusLabel(err)).Inc()
}

func (c *instrumentedClient) Select(ctx context.Context, q backend.Query, dest interface{}) error {
	start := time.Now()
	err := c.next.Select(ctx, q, dest)
	c.observe("select", q.Table, start, err)
	return err
}

func (c *instrumentedClient) Single(ctx context.Context, q backend.Query, dest interface{}) error {
	start := time.Now()
	err := c.next.Single(ctx, q, dest)
	c.observe("single", q.Table, start, err)
	return err
}

func (c *instrumentedClient) Insert(ctx context.Context, table string, rows ...backend.Values) error {
	start := time.Now()
	err := c.next.Insert(ctx, table, rows...)
	c.observe("insert", table, start, err)
	return err
}

func (c *instrumentedClient) Update(ctx context.Context, table string, values backend.Values, filters ...backend.Filter) (int64, error) {
	start := time.Now()
	n, err := c.next.Update(ctx, table, values, filters...)
	c.observe("update", table, start, err)
	return n, err
}

func (c *instrumentedClient) Delete(ctx context.Context, table string, filters ...backend.Filter) (int64, error) {
	start := time.Now()
	n, err := c.next.Delete(ctx, table, filters...)
	c.observe("delete", table, start, err)
	return n, err
}

func (c *instrumentedClient) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.next.Ping(ctx)
	c.observe("ping", "", start, err)
	return err
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, backend.ErrNoRows):
		return "not_found"
	default:
		return "error"
	}
}
