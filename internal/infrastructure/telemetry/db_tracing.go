package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultSlowQueryThreshold applies when the configured threshold is unset
	DefaultSlowQueryThreshold = 200 * time.Millisecond

	queryStartKey = "telemetry:query_start"
)

// DBTracingConfig controls the gorm instrumentation. LogFullSQL puts query
// variables on spans; they carry customer PII, so it stays off outside
// local debugging.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// SlowQueryObserver is told about every statement slower than the threshold.
// *Metrics implements it.
type SlowQueryObserver interface {
	SlowQuery(table string, elapsed time.Duration)
}

// DBTracing instruments a gorm handle: otelgorm spans when tracing is on,
// plus slow statement detection reported to spans, the log and an optional
// observer.
type DBTracing struct {
	config   DBTracingConfig
	logger   *zap.Logger
	observer SlowQueryObserver
}

// DBTracingOption configures DBTracing
type DBTracingOption func(*DBTracing)

// WithSlowQueryObserver reports slow statements to o. Slow statement
// detection runs whenever an observer is set, even with tracing off.
func WithSlowQueryObserver(o SlowQueryObserver) DBTracingOption {
	return func(t *DBTracing) {
		t.observer = o
	}
}

// NewDBTracing creates the instrumentation; call Register to install it
func NewDBTracing(cfg DBTracingConfig, logger *zap.Logger, opts ...DBTracingOption) *DBTracing {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultSlowQueryThreshold
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &DBTracing{config: cfg, logger: logger.Named("db")}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register installs the plugin and callbacks on db. Registering twice on the
// same handle fails.
func (t *DBTracing) Register(db *gorm.DB) error {
	if !t.config.Enabled && t.observer == nil {
		t.logger.Debug("Database instrumentation disabled")
		return nil
	}

	if t.config.Enabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(t.config.DBSystem)}
		if !t.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	if err := t.registerTiming(db); err != nil {
		return err
	}

	t.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", t.config.Enabled),
		zap.Bool("log_full_sql", t.config.LogFullSQL),
		zap.Duration("slow_query_threshold", t.config.SlowQueryThresh),
	)
	return nil
}

func (t *DBTracing) registerTiming(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:start_create", t.start),
		cb.Create().After("gorm:create").Register("telemetry:finish_create", t.finish),
		cb.Query().Before("gorm:query").Register("telemetry:start_query", t.start),
		cb.Query().After("gorm:query").Register("telemetry:finish_query", t.finish),
		cb.Update().Before("gorm:update").Register("telemetry:start_update", t.start),
		cb.Update().After("gorm:update").Register("telemetry:finish_update", t.finish),
		cb.Delete().Before("gorm:delete").Register("telemetry:start_delete", t.start),
		cb.Delete().After("gorm:delete").Register("telemetry:finish_delete", t.finish),
		cb.Row().Before("gorm:row").Register("telemetry:start_row", t.start),
		cb.Row().After("gorm:row").Register("telemetry:finish_row", t.finish),
		cb.Raw().Before("gorm:raw").Register("telemetry:start_raw", t.start),
		cb.Raw().After("gorm:raw").Register("telemetry:finish_raw", t.finish),
	)
}

func (t *DBTracing) start(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

// finish annotates the statement span and reports slow statements
func (t *DBTracing) finish(db *gorm.DB) {
	var elapsed time.Duration
	if v, ok := db.InstanceGet(queryStartKey); ok {
		if started, ok := v.(time.Time); ok {
			elapsed = time.Since(started)
		}
	}
	slow := elapsed > t.config.SlowQueryThresh
	table := db.Statement.Table

	if slow {
		if t.observer != nil {
			t.observer.SlowQuery(table, elapsed)
		}
		t.logger.Debug("Slow query",
			zap.String("table", table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", t.config.SlowQueryThresh),
			zap.Int64("rows", db.Statement.RowsAffected),
		)
	}

	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", t.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
