package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"discord-giveaway-bot/internal/common/logger"
)

const loggerKey = "logger"

// Logger attaches a request-scoped logger carrying the request id and logs
// one line per finished request. Health-check endpoints are logged at debug level.
func Logger(base zerolog.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := logger.WithRequest(base, getRequestID(c))
		c.Set(loggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch _, isQuiet := quiet[c.FullPath()]; {
		case status >= http.StatusInternalServerError:
			event = reqLog.Error()
		case status >= http.StatusBadRequest:
			event = reqLog.Warn()
		case isQuiet:
			event = reqLog.Debug()
		default:
			event = reqLog.Info()
		}
		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.RequestURI()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("Request processed")
	}
}

// RequestLogger returns the logger attached by Logger, or fallback tagged
// with the request id when the middleware did not run.
func RequestLogger(c *gin.Context, fallback zerolog.Logger) zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return logger.WithRequest(fallback, getRequestID(c))
}
