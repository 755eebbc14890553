package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	scopeKey  struct{}
)

// scope is the request identity attached to log lines. It is copied on every
// change so contexts handed to goroutines never see later updates.
type scope struct {
	requestID string
	actorID   string
	actorRole string
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the attached logger without enrichment, or a no-op
// logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id for L
func WithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = requestID
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithActor records the authenticated staff member for L
func WithActor(ctx context.Context, actorID, role string) context.Context {
	s := scopeFrom(ctx)
	s.actorID, s.actorRole = actorID, role
	return context.WithValue(ctx, scopeKey{}, s)
}

func GetRequestID(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

func GetActorID(ctx context.Context) string {
	return scopeFrom(ctx).actorID
}

// Fields returns the trace, request and actor fields carried by ctx
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
	}

	s := scopeFrom(ctx)
	if s.requestID != "" {
		fields = append(fields, zap.String("request_id", s.requestID))
	}
	if s.actorID != "" {
		fields = append(fields, zap.String("actor_id", s.actorID))
	}
	if s.actorRole != "" {
		fields = append(fields, zap.String("actor_role", s.actorRole))
	}
	return fields
}

// L is the logger for code handling a request:
//
//	logger.L(ctx).Info("Refund approved", zap.String("return_no", no))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if fields := Fields(ctx); len(fields) > 0 {
		return l.With(fields...)
	}
	return l
}
