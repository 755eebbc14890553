package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "settlement.generate",
		attribute.Int("settlement.count", 3))
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.generate", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, int64(3), attrMap(spans[0].Attributes())["settlement.count"].AsInt64())
}

func TestMutationSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartMutationSpan(context.Background(),
		"PATCH /api/v1/admin/orders/:order_no", "order:update", "OPS")
	telemetry.MutationSpanFromContext(ctx).SetOutcome(idempotency.OutcomeCompleted)
	span.SetTarget("order", "ORD-20250502-0001")
	span.SetResult("OK", true, false, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "admin.mutate", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "PATCH /api/v1/admin/orders/:order_no", attrs[telemetry.AttrEndpoint].AsString())
	assert.Equal(t, "order:update", attrs[telemetry.AttrPermission].AsString())
	assert.Equal(t, "OPS", attrs[telemetry.AttrActorRole].AsString())
	assert.Equal(t, "completed", attrs[telemetry.AttrOutcome].AsString())
	assert.Equal(t, "order", attrs[telemetry.AttrTargetType].AsString())
	assert.Equal(t, "ORD-20250502-0001", attrs[telemetry.AttrTargetID].AsString())
	assert.Equal(t, "OK", attrs[telemetry.AttrResultCode].AsString())
	assert.True(t, attrs[telemetry.AttrReplayed].AsBool())
}

func TestMutationSpan_SetResult(t *testing.T) {
	t.Run("business rejection leaves status unset", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartMutationSpan(context.Background(), "refund", "return:refund", "CS")
		span.SetTarget("", "")
		span.SetResult("INVALID_TRANSITION", false, false, errors.New("no such edge"))
		span.End()

		got := sr.Ended()[0]
		assert.Equal(t, codes.Unset, got.Status().Code)
		assert.Empty(t, got.Events())
		_, hasTarget := attrMap(got.Attributes())[telemetry.AttrTargetType]
		assert.False(t, hasTarget)
	})

	t.Run("internal failure is recorded", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartMutationSpan(context.Background(), "refund", "return:refund", "CS")
		span.SetResult("INTERNAL_ERROR", false, true, errors.New("connection reset"))
		span.End()

		got := sr.Ended()[0]
		assert.Equal(t, codes.Error, got.Status().Code)
		assert.Equal(t, "connection reset", got.Status().Description)
		require.Len(t, got.Events(), 1)
		assert.Equal(t, "exception", got.Events()[0].Name)
	})
}

func TestRecordError_Nil(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "noop")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(nil, errors.New("ignored"))
	span.End()

	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}

func TestMutationSpanFromContext_WithoutSpan(t *testing.T) {
	span := telemetry.MutationSpanFromContext(context.Background())
	assert.NotPanics(t, func() {
		span.SetOutcome(idempotency.OutcomeAcquired)
		span.SetResult("OK", false, false, nil)
	})
	assert.False(t, span.SpanContext().IsValid())
}
