package middleware

import (
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records request counts and latency per registered route. Register
// it outside Recover so recovered panics are counted as 500s.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// commit the response so the recorded status is the one sent
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
		return err
	}
}
