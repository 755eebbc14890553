package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/cache"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// passwordEnv lets create-admin read the password without it showing up in
// shell history
const passwordEnv = "ADMINCTL_PASSWORD"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()
	switch os.Args[1] {
	case "create-admin":
		err = createAdmin(ctx, os.Args[2:], log)
	case "prune-idempotency":
		err = pruneIdempotency(ctx, os.Args[2:], log)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		log.Error("Unknown command", zap.String("command", os.Args[1]))
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func createAdmin(ctx context.Context, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "Login email (required)")
	name := fs.String("name", "", "Display name (required)")
	role := fs.String("role", string(identity.RoleSuperAdmin), "Admin role")
	password := fs.String("password", "", "Password; prefer the "+passwordEnv+" variable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}
	if *email == "" || *name == "" || *password == "" {
		fs.Usage()
		return errors.New("email, name and password are required")
	}
	adminRole, ok := identity.ParseAdminRole(strings.ToUpper(*role))
	if !ok {
		return fmt.Errorf("unknown admin role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, closeDB, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	staff := persistence.NewRepositories(db.DB, shared.SystemClock{}, idempotency.DefaultOptions()).Staff()

	existing, err := staff.FindByEmail(ctx, *email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("a user with email %s already exists", *email)
	}

	user, err := identity.NewStaffUser(*email, *name, *password, adminRole)
	if err != nil {
		return err
	}
	if err := staff.Create(ctx, user); err != nil {
		return err
	}

	log.Info("Admin user created",
		zap.String("id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("role", string(adminRole)),
	)
	return nil
}

func pruneIdempotency(ctx context.Context, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("prune-idempotency", flag.ExitOnError)
	grace := fs.Duration("before", 0, "Only prune records that expired at least this long ago")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *grace < 0 {
		return errors.New("-before must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, closeDB, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	clock := shared.SystemClock{}
	opts := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis).Options()
	store := persistence.NewGormIdempotencyStore(db.DB, clock, opts)

	before := clock.Now().Add(-*grace)
	n, err := store.Prune(ctx, before)
	if err != nil {
		return err
	}
	log.Info("Pruned idempotency records",
		zap.Int64("deleted", n),
		zap.Time("before", before),
	)
	return nil
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, func(), error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel("warn"),
		logger.WithSlowThreshold(time.Second))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}, nil
}

func printUsage() {
	fmt.Println(`Shop admin maintenance

Usage:
  adminctl <command> [flags]

Commands:
  create-admin        Create a staff account
      -email string       Login email
      -name string        Display name
      -role string        Admin role (default: SUPER_ADMIN)
      -password string    Password (or set ` + passwordEnv + `)
  prune-idempotency   Delete expired idempotency records from the database
      -before duration    Only prune records expired at least this long ago

The database is configured through config.toml or ADMIN_DATABASE_* variables.`)
}
