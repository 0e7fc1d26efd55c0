package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/pkg/middleware/requestid"
)

// InitSentry configures the global hub. An empty DSN disables reporting.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err to the global hub.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// GinMiddleware reports panics and 5xx responses. Panics are re-raised for gin's recovery.
// Requests whose client already went away are not reported.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		hub.Scope().SetTag("request_id", requestid.Value(c))

		defer func() {
			if r := recover(); r != nil {
				hub.RecoverWithContext(c.Request.Context(), r)
				panic(r)
			}
		}()

		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError || errors.Is(c.Request.Context().Err(), context.Canceled) {
			return
		}
		hub.Scope().SetTag("route", c.FullPath())
		if len(c.Errors) == 0 {
			hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", c.Request.Method, c.FullPath(), c.Writer.Status()))
			return
		}
		for _, ginErr := range c.Errors {
			hub.CaptureException(ginErr.Err)
		}
	}
}
