package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFunc() (string, int64) {
	return "SELECT * FROM orders WHERE phone = '010-1234-5678'", 1
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithActor(WithRequestID(context.Background(), "req-7"), "actor-1", "CS")

	t.Run("error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)
		gl.Trace(ctx, time.Now(), sqlFunc, errors.New("deadlock"))

		logs := recorded.FilterMessage("SQL error").All()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "actor-1", fields["actor_id"])
		assert.Equal(t, "SELECT orders", fields["stmt"])
		assert.NotContains(t, fields, "sql")
		assert.NotContains(t, logs[0].Message, "010-1234-5678")
	})

	t.Run("record not found logged when asked", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
		gl.Trace(ctx, time.Now(), sqlFunc, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, recorded.FilterMessage("SQL error").Len())
	})

	t.Run("record not found ignored", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)
		gl.Trace(ctx, time.Now(), sqlFunc, gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFunc, nil)
		require.Equal(t, 1, recorded.Len())
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, "Slow SQL", entry.Message)
	})

	t.Run("sql text only when enabled", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSQL(true))
		gl.Trace(ctx, time.Now(), sqlFunc, nil)
		logs := recorded.FilterMessage("SQL query").All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].ContextMap()["sql"], "FROM orders")
	})

	t.Run("silent", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Silent)
		gl.Trace(ctx, time.Now(), sqlFunc, errors.New("x"))
		assert.Zero(t, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestSummarizeSQL(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{`SELECT * FROM "orders" WHERE phone = '010-1234-5678'`, "SELECT orders"},
		{`INSERT INTO "audit_logs" ("id","actor_email") VALUES ($1,$2)`, "INSERT audit_logs"},
		{`INSERT INTO idempotency_records(actor_id) VALUES ($1)`, "INSERT idempotency_records"},
		{`UPDATE "staff_users" SET "admin_role"='FINANCE'`, "UPDATE staff_users"},
		{`DELETE FROM return_requests WHERE id = $1`, "DELETE return_requests"},
		{`SELECT count(*) FROM "settlements"`, "SELECT settlements"},
		{`SELECT 1`, "SELECT"},
		{`BEGIN`, "BEGIN"},
		{``, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, summarizeSQL(tt.sql), tt.sql)
	}
}
