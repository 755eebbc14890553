package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for application spans
const TracerName = "shop-admin"

// Span attribute keys for admin mutations
const (
	AttrEndpoint   = attribute.Key("admin.endpoint")
	AttrPermission = attribute.Key("admin.permission")
	AttrActorRole  = attribute.Key("admin.actor_role")
	AttrTargetType = attribute.Key("admin.target_type")
	AttrTargetID   = attribute.Key("admin.target_id")
	AttrResultCode = attribute.Key("admin.result_code")
	AttrOutcome    = attribute.Key("idempotency.outcome")
	AttrReplayed   = attribute.Key("idempotency.replayed")
)

// StartSpan starts an internal span on the global tracer provider. The
// caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError records err on the span and marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// MutationSpan is the span around one admin mutation
//
//	ctx, span := telemetry.StartMutationSpan(ctx, endpoint, permission, role)
//	defer span.End()
type MutationSpan struct {
	trace.Span
}

// StartMutationSpan starts an "admin.mutate" span
func StartMutationSpan(ctx context.Context, endpoint, permission, actorRole string) (context.Context, MutationSpan) {
	ctx, span := StartSpan(ctx, "admin.mutate",
		AttrEndpoint.String(endpoint),
		AttrPermission.String(permission),
		AttrActorRole.String(actorRole),
	)
	return ctx, MutationSpan{span}
}

// MutationSpanFromContext returns the mutation span in ctx; it wraps a no-op
// span when ctx carries none
func MutationSpanFromContext(ctx context.Context) MutationSpan {
	return MutationSpan{trace.SpanFromContext(ctx)}
}

// SetOutcome records how the idempotency store answered the request
func (s MutationSpan) SetOutcome(outcome fmt.Stringer) {
	s.SetAttributes(AttrOutcome.String(outcome.String()))
}

// SetTarget records the entity the mutation touched
func (s MutationSpan) SetTarget(targetType, targetID string) {
	if targetType == "" && targetID == "" {
		return
	}
	s.SetAttributes(AttrTargetType.String(targetType), AttrTargetID.String(targetID))
}

// SetResult records the result code. err is recorded only when failed is
// set, so expected business rejections do not mark the span as an error.
func (s MutationSpan) SetResult(code string, replayed, failed bool, err error) {
	s.SetAttributes(AttrResultCode.String(code), AttrReplayed.Bool(replayed))
	if failed {
		RecordError(s.Span, err)
	}
}
