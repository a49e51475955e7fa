package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	BuyersCreated  prometheus.Counter
	BuyersImported prometheus.Counter
	BuyersSearched prometheus.Counter
	ExportsServed  *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New creates a Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		BuyersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buyers_created_total",
			Help: "Total number of buyers created",
		}),
		BuyersImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buyers_imported_total",
			Help: "Total number of buyers imported from CSV",
		}),
		BuyersSearched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buyers_searched_total",
			Help: "Total number of buyer searches performed",
		}),
		ExportsServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buyer_exports_total",
				Help: "Total number of buyer exports served",
			},
			[]string{"format"},
		),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Total number of search cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Total number of search cache misses",
		}),
	}
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			method := c.Request().Method
			path := c.Path()
			code := strconv.Itoa(status)

			m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
