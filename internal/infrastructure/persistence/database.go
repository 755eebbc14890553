// Package persistence implements the domain repositories and the
// idempotency store on gorm.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/shopadmin/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database owns the gorm handle and its connection pool
type Database struct {
	DB *gorm.DB
}

type connectOptions struct {
	attempts    int
	retryDelay  time.Duration
	pingTimeout time.Duration
}

// DatabaseOption tunes how NewDatabase connects
type DatabaseOption func(*connectOptions)

// WithConnectRetries retries the startup ping up to attempts times, waiting
// delay, then 2*delay and so on between tries
func WithConnectRetries(attempts int, delay time.Duration) DatabaseOption {
	return func(o *connectOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		o.retryDelay = delay
	}
}

// WithPingTimeout bounds each startup ping
func WithPingTimeout(d time.Duration) DatabaseOption {
	return func(o *connectOptions) {
		o.pingTimeout = d
	}
}

// NewDatabase opens a postgres connection pool. A nil logger keeps gorm silent.
func NewDatabase(cfg *config.DatabaseConfig, log gormlogger.Interface, opts ...DatabaseOption) (*Database, error) {
	return openDatabase(postgres.Open(cfg.DSN()), cfg, log, opts...)
}

func openDatabase(dialector gorm.Dialector, cfg *config.DatabaseConfig, log gormlogger.Interface, opts ...DatabaseOption) (*Database, error) {
	o := connectOptions{attempts: 1, retryDelay: time.Second, pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: log,
		// Every mutation already runs in an explicit transaction scope
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		// waitReady owns the startup ping so it can retry
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	d := &Database{DB: db}
	if err := d.waitReady(o); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) waitReady(o connectOptions) error {
	var err error
	delay := o.retryDelay
	for attempt := 1; attempt <= o.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), o.pingTimeout)
		err = d.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < o.attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("database not reachable after %d attempt(s): %w", o.attempts, err)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that a pooled connection is alive; /health uses it
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
