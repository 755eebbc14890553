package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

type recordingObserver struct {
	mu     sync.Mutex
	tables []string
}

func (o *recordingObserver) SlowQuery(table string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, table)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, a := range s.Attributes() {
		m[a.Key] = a.Value
	}
	return m
}

func TestNewDBTracing_Defaults(t *testing.T) {
	tr := NewDBTracing(DBTracingConfig{Enabled: true}, nil)

	assert.Equal(t, DefaultSlowQueryThreshold, tr.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", tr.config.DBSystem)
	assert.False(t, tr.config.LogFullSQL, "query variables stay out of spans by default")
}

func TestDBTracing_Register(t *testing.T) {
	t.Run("nothing to do registers nothing", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, NewDBTracing(DBTracingConfig{}, zap.NewNop()).Register(db))
		assert.Nil(t, db.Callback().Query().Get("telemetry:finish_query"))
	})

	t.Run("tracing registers timing callbacks", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, NewDBTracing(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()).Register(db))
		assert.NotNil(t, db.Callback().Query().Get("telemetry:finish_query"))
		assert.NotNil(t, db.Callback().Create().Get("telemetry:start_create"))
	})

	t.Run("observer alone registers timing callbacks", func(t *testing.T) {
		db := setupTestDB(t)
		tr := NewDBTracing(DBTracingConfig{}, zap.NewNop(), WithSlowQueryObserver(&recordingObserver{}))
		require.NoError(t, tr.Register(db))
		assert.NotNil(t, db.Callback().Raw().Get("telemetry:finish_raw"))
	})

	t.Run("double registration fails", func(t *testing.T) {
		db := setupTestDB(t)
		tr := NewDBTracing(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())
		require.NoError(t, tr.Register(db))
		assert.Error(t, tr.Register(db))
	})
}

func TestDBTracing_ReportsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := &recordingObserver{}
	db := setupTestDB(t)

	// every statement is slower than a nanosecond
	tr := NewDBTracing(DBTracingConfig{SlowQueryThresh: time.Nanosecond}, zap.New(core), WithSlowQueryObserver(obs))
	require.NoError(t, tr.Register(db))

	require.NoError(t, db.Create(&tracedRow{Name: "ORD-1"}).Error)

	assert.Contains(t, obs.tables, "traced_rows")
	entries := logs.FilterMessage("Slow query").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "traced_rows", entries[0].ContextMap()["table"])
}

func TestDBTracing_Finish(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupRecorder(t)
	tr := NewDBTracing(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "settlement.save")

	// a chained call yields the statement instance the callbacks see
	tx := db.WithContext(ctx).Table("settlements")
	tx.InstanceSet(queryStartKey, time.Now().Add(-50*time.Millisecond))
	tx.Statement.RowsAffected = 2
	tx.Error = errors.New("deadlock detected")
	tr.finish(tx)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "settlements", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.GreaterOrEqual(t, attrs["db.query_duration_ms"].AsInt64(), int64(50))
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var names []string
	for _, e := range spans[0].Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query")
}

func TestDBTracing_Finish_NotFoundIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupRecorder(t)
	tr := NewDBTracing(DBTracingConfig{Enabled: true}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "order.find")
	tx := db.WithContext(ctx).Table("orders")
	tx.Error = gorm.ErrRecordNotFound
	tr.finish(tx)
	span.End()

	got := sr.Ended()[0]
	assert.NotEqual(t, codes.Error, got.Status().Code)
	_, slow := spanAttrs(got)["db.slow_query"]
	assert.False(t, slow, "no start time means no timing")
}

func TestDBTracing_Finish_NonRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	tr := NewDBTracing(DBTracingConfig{Enabled: true}, zap.NewNop())

	tx := db.WithContext(context.Background()).Table("orders")
	tx.Error = errors.New("ignored")
	assert.NotPanics(t, func() { tr.finish(tx) })
}

func TestDBTracing_WithOtelGorm(t *testing.T) {
	tp, sr := setupRecorder(t)
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	db := setupTestDB(t)
	require.NoError(t, NewDBTracing(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()).Register(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "ORD-1"}).Error)

	var found tracedRow
	require.NoError(t, db.WithContext(ctx).First(&found, "name = ?", "ORD-1").Error)
	span.End()

	assert.Greater(t, len(sr.Ended()), 1, "gorm operations produce child spans")
}
