package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"auctionlend/internal/infrastructure/metrics"
)

// MetricsMiddleware records request latency by route template and status.
func MetricsMiddleware(m *metrics.LendingMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}
