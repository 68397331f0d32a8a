package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agents"

// Registry 持有网关全部指标，避免污染全局默认注册表。
type Registry struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewRegistry 创建注册表并注册 HTTP 指标与进程指标。
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"handler", "method", "code"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Total number of HTTP requests that resulted in a server error.",
		}, []string{"handler", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"handler", "method"}),
	}
	r.reg.MustRegister(
		r.requests,
		r.errors,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func (r *Registry) ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	if status >= 500 {
		r.errors.WithLabelValues(handler, method).Inc()
	}
	r.latency.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// RegisterPool 导出连接池统计。
func (r *Registry) RegisterPool(source StatsSource) error {
	return r.reg.Register(newPoolCollector(source))
}

// Handler exposes the metrics in Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer 供测试读取已注册的指标。
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// StatsSource 由 sqlstore.Pool 实现。
type StatsSource interface {
	Stats() sql.DBStats
}

type poolCollector struct {
	source   StatsSource
	open     *prometheus.Desc
	inUse    *prometheus.Desc
	idle     *prometheus.Desc
	waits    *prometheus.Desc
	waitTime *prometheus.Desc
}

func newPoolCollector(source StatsSource) *poolCollector {
	return &poolCollector{
		source:   source,
		open:     prometheus.NewDesc(namespace+"_db_open_connections", "Number of established database connections.", nil, nil),
		inUse:    prometheus.NewDesc(namespace+"_db_in_use_connections", "Number of database connections currently in use.", nil, nil),
		idle:     prometheus.NewDesc(namespace+"_db_idle_connections", "Number of idle database connections.", nil, nil),
		waits:    prometheus.NewDesc(namespace+"_db_wait_count", "Total number of connections waited for.", nil, nil),
		waitTime: prometheus.NewDesc(namespace+"_db_wait_seconds_total", "Total time blocked waiting for a new connection.", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.waits
	ch <- c.waitTime
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.Idle))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(stats.WaitCount))
	ch <- prometheus.MustNewConstMetric(c.waitTime, prometheus.CounterValue, stats.WaitDuration.Seconds())
}
