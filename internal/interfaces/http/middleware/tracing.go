package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider overrides the global provider (optional).
	TracerProvider trace.TracerProvider
	// SkipPaths are never traced, e.g. health probes.
	SkipPaths []string
}

// TracingWithConfig returns the otelgin middleware. It starts one server
// span per request named after the route template and extracts the
// incoming trace context.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	if len(cfg.SkipPaths) > 0 {
		skip := make(map[string]struct{}, len(cfg.SkipPaths))
		for _, p := range cfg.SkipPaths {
			skip[p] = struct{}{}
		}
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			_, skipped := skip[r.URL.Path]
			return !skipped
		}))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// TracingAttributeInjector tags the request span with the request id, the
// authenticated actor and whether an idempotency key was sent. 5xx responses
// mark the span failed; 4xx are client or business rejections and do not.
// Place it after both TracingWithConfig and Authenticate.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		attrs := []attribute.KeyValue{
			attribute.Bool("idempotency.key_present", c.GetHeader(idempotency.HeaderName) != ""),
		}
		if requestID := GetRequestID(c); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}
		if actor, ok := GetActor(c); ok {
			attrs = append(attrs,
				attribute.String("actor.id", actor.ID.String()),
				attribute.String("actor.role", string(actor.Role)),
			)
		}
		span.SetAttributes(attrs...)

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
