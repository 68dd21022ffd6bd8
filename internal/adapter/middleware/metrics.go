package middleware

import (
	"time"

	"collections-backend/internal/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records one observation per request, labelled with the route template
// so path parameters do not explode label cardinality.
func Metrics(mt *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			mt.HTTPRequest(c.Request().Method, path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
