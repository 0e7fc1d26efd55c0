package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusClientClosed labels requests whose caller went away before the response was written.
const StatusClientClosed = 499

const unmatchedRoute = "unmatched"

type requestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics records duration and status per route template. Requests that match no route share
// one label so raw URLs never become label values. Routes listed in skip are not recorded.
func Metrics(observer requestObserver, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if _, ok := skipped[route]; ok || observer == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if errors.Is(c.Request.Context().Err(), context.Canceled) {
			status = StatusClientClosed
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, status, time.Since(start))
	}
}
