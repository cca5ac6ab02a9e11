package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware attaches a request-scoped logger to the request context,
// echoes X-Request-ID and writes one access line per request. The level
// follows the status: errors for 5xx, warnings for 4xx. Successful
// requests on quietPaths (health probes) are logged at debug.
func GinMiddleware(logger zerolog.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(headerRequestID, reqID)

		reqLogger := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = reqLogger.Error()
		case status >= http.StatusBadRequest:
			evt = reqLogger.Warn()
		case quiet[c.FullPath()]:
			evt = reqLogger.Debug()
		default:
			evt = reqLogger.Info()
		}

		evt = evt.Int(FieldStatus, status).
			Int64(FieldLatency, time.Since(start).Milliseconds())
		// Filled in by handlers once the caller is known.
		for _, key := range []string{FieldActorKind, FieldUserID, FieldOutcome} {
			if v := c.GetString(key); v != "" {
				evt = evt.Str(key, v)
			}
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Msg("request completed")
	}
}
