package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	// requests processed by the REST API
	requests *prometheus.CounterVec

	// REST API response times
	responseTime *prometheus.HistogramVec

	// upload outcomes by status and failing step
	letters *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docmail_rest_requests_processed_total",
			Help: "The total number of processed REST requests",
		}, []string{"method", "endpoint", "code"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docmail_restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"method", "endpoint"}),
		letters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docmail_letters_total",
			Help: "The total number of letters handed to the provider, by outcome",
		}, []string{"status", "step"}),
	}
	m.registry.MustRegister(m.requests, m.responseTime, m.letters)
	return m
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.responseTime.WithLabelValues(c.Request.Method, endpoint).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
