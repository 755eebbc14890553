package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopadmin/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Pruner deletes idempotency records that can no longer be replayed
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// PrunerConfig holds configuration for the idempotency pruner
type PrunerConfig struct {
	// Interval is how often a prune pass runs
	Interval time.Duration

	// Grace keeps records around for this long after they expire
	Grace time.Duration
}

// DefaultPrunerConfig returns default pruner configuration
func DefaultPrunerConfig() PrunerConfig {
	return PrunerConfig{
		Interval: time.Hour,
	}
}

// PrunerStats reports the outcome of the most recent prune pass
type PrunerStats struct {
	Runs         int
	LastRunAt    *time.Time
	LastDeleted  int64
	TotalDeleted int64
	LastError    string
}

// IdempotencyPruner periodically removes expired idempotency records
type IdempotencyPruner struct {
	config PrunerConfig
	store  Pruner
	clock  shared.Clock
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	stats     PrunerStats
}

// NewIdempotencyPruner creates a new pruner
func NewIdempotencyPruner(config PrunerConfig, store Pruner, clock shared.Clock, logger *zap.Logger) (*IdempotencyPruner, error) {
	if store == nil {
		return nil, errors.New("scheduler: pruner store is required")
	}
	if config.Interval <= 0 {
		return nil, errors.New("scheduler: prune interval must be positive")
	}
	if config.Grace < 0 {
		return nil, errors.New("scheduler: prune grace must not be negative")
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyPruner{
		config: config,
		store:  store,
		clock:  clock,
		logger: logger,
	}, nil
}

// Start runs prune passes in the background until Stop or ctx cancellation
func (p *IdempotencyPruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Idempotency pruner started",
		zap.Duration("interval", p.config.Interval),
		zap.Duration("grace", p.config.Grace),
	)
	return nil
}

// Stop stops the pruner, waiting for an in-flight pass up to ctx's deadline
func (p *IdempotencyPruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Idempotency pruner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the background loop is active
func (p *IdempotencyPruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

func (p *IdempotencyPruner) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single prune pass and records its outcome
func (p *IdempotencyPruner) RunOnce(ctx context.Context) (int64, error) {
	now := p.clock.Now()
	deleted, err := p.store.Prune(ctx, now.Add(-p.config.Grace))

	p.mu.Lock()
	p.stats.Runs++
	p.stats.LastRunAt = &now
	if err != nil {
		p.stats.LastError = err.Error()
		p.stats.LastDeleted = 0
	} else {
		p.stats.LastError = ""
		p.stats.LastDeleted = deleted
		p.stats.TotalDeleted += deleted
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("Idempotency prune failed", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("Pruned idempotency records", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// Stats returns a snapshot of the pruner's run history
func (p *IdempotencyPruner) Stats() PrunerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.stats
	if stats.LastRunAt != nil {
		t := *stats.LastRunAt
		stats.LastRunAt = &t
	}
	return stats
}
