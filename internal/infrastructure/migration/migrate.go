package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// DefaultLockTimeout bounds how long a run waits for another migrator holding
// the advisory lock
const DefaultLockTimeout = 30 * time.Second

// Status is the schema state recorded in the migrations table
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator applies the embedded SQL migrations to PostgreSQL
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Option configures a Migrator
type Option func(*postgres.Config, *migrate.Migrate)

// WithMigrationsTable stores the applied version in a table other than
// schema_migrations
func WithMigrationsTable(table string) Option {
	return func(c *postgres.Config, _ *migrate.Migrate) {
		c.MigrationsTable = table
	}
}

// WithLockTimeout overrides DefaultLockTimeout
func WithLockTimeout(d time.Duration) Option {
	return func(_ *postgres.Config, m *migrate.Migrate) {
		if m != nil {
			m.LockTimeout = d
		}
	}
}

// New creates a Migrator reading SQL files from source, usually
// migrations.FS
func New(db *sql.DB, source fs.FS, logger *zap.Logger, opts ...Option) (*Migrator, error) {
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	pgCfg := &postgres.Config{}
	for _, opt := range opts {
		opt(pgCfg, nil)
	}
	driver, err := postgres.WithInstance(db, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.LockTimeout = DefaultLockTimeout
	for _, opt := range opts {
		opt(pgCfg, m)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{migrate: m, logger: logger.Named("migrate")}, nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls back every applied migration
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations; a negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("step %d", n), func() error { return m.migrate.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
}

// apply runs one migration command. ErrNoChange is not an error.
func (m *Migrator) apply(op string, run func() error) error {
	m.logger.Info("Running migrations", zap.String("op", op))

	err := run()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already up to date", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	status, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations applied",
		zap.String("op", op),
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
	)
	return nil
}

// Status reports the applied version; Version is 0 on an empty schema
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Force records version as applied and clears the dirty flag without running
// any SQL. Only for repairing a failed run by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
