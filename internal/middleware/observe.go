package middleware

import (
	"net/http"
	"strconv"
	"time"

	"healthscope/internal/logger"
	"healthscope/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Observe logs each request and records it in the HTTP metrics.
func Observe(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlightGauge.Inc()
		c.Next()
		m.InFlightGauge.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start)
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(elapsed.Seconds())

		args := []any{"method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(),
			"ms", elapsed.Milliseconds(), "ip", c.ClientIP()}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http.request", args...)
			return
		}
		logger.Debug("http.request", args...)
	}
}

// LimitBodySize caps request bodies at maxBytes.
func LimitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
