package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GinOption configures GinMiddleware
type GinOption func(*ginConfig)

type ginConfig struct {
	quietPaths map[string]struct{}
}

// WithQuietPaths drops the access line for successful requests to paths such
// as health probes and the metrics scrape. Failures are still logged.
func WithQuietPaths(paths ...string) GinOption {
	return func(c *ginConfig) {
		for _, p := range paths {
			c.quietPaths[p] = struct{}{}
		}
	}
}

// GinMiddleware writes one access line per request and puts a request-scoped
// logger on the request context. It must run after the request id middleware.
func GinMiddleware(logger *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	cfg := ginConfig{quietPaths: make(map[string]struct{})}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqLogger := logger.With(zap.String("method", c.Request.Method), zap.String("path", path))
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		level := accessLevel(status)
		if _, quiet := cfg.quietPaths[path]; quiet && level == zapcore.InfoLevel {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" && route != path {
			fields = append(fields, zap.String("route", route))
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		// L picks up the actor the auth middleware attached after we started
		if ce := L(c.Request.Context()).Check(level, "HTTP Request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a panic into a logged INTERNAL_ERROR response
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("Panic recovered",
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "internal server error",
				},
			})
		}()
		c.Next()
	}
}
