package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// defaultCleanupInterval is how often expired records are swept
const defaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore implements idempotency.Store using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	records   map[string]*idempotency.Record
	clock     shared.Clock
	opts      idempotency.Options
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store.
// A positive cleanupInterval starts a background goroutine that prunes
// expired records; zero leaves pruning to the caller.
func NewInMemoryIdempotencyStore(clock shared.Clock, opts idempotency.Options, cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	store := &InMemoryIdempotencyStore{
		records:  make(map[string]*idempotency.Record),
		clock:    clock,
		opts:     opts,
		stopChan: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.wg.Add(1)
		go store.cleanupLoop(cleanupInterval)
	}

	return store
}

// Begin claims the scope, taking over stale or expired records
func (s *InMemoryIdempotencyStore) Begin(_ context.Context, scope idempotency.Scope, requestHash string) (idempotency.BeginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	key := scope.String()

	if rec, exists := s.records[key]; exists {
		reusable := rec.IsExpired(now) || rec.IsStale(now, s.opts.InProgressLease)
		if !reusable {
			if rec.RequestHash != requestHash {
				return idempotency.BeginResult{}, idempotency.ErrKeyReused
			}
			outcome := idempotency.OutcomeInProgress
			if rec.Status == idempotency.StatusCompleted {
				outcome = idempotency.OutcomeCompleted
			}
			return idempotency.BeginResult{Outcome: outcome, Record: copyRecord(rec)}, nil
		}
	}

	rec := &idempotency.Record{
		Scope:       scope,
		RequestHash: requestHash,
		Status:      idempotency.StatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.records[key] = rec
	return idempotency.BeginResult{Outcome: idempotency.OutcomeAcquired, Record: copyRecord(rec)}, nil
}

// Complete stores the response for an in-progress record
func (s *InMemoryIdempotencyStore) Complete(_ context.Context, scope idempotency.Scope, resp idempotency.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[scope.String()]
	if !exists || rec.Status != idempotency.StatusInProgress {
		return fmt.Errorf("complete idempotency key %s: %w", scope, idempotency.ErrNotInProgress)
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.opts.Retention)
	rec.Status = idempotency.StatusCompleted
	rec.Response = &resp
	rec.UpdatedAt = now
	rec.CompletedAt = &now
	rec.ExpiresAt = &expiresAt
	return nil
}

// Abort removes an in-progress record
func (s *InMemoryIdempotencyStore) Abort(_ context.Context, scope idempotency.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.String()
	if rec, exists := s.records[key]; exists && rec.Status == idempotency.StatusInProgress {
		delete(s.records, key)
	}
	return nil
}

// Prune removes completed records that expired before the given time and
// in-progress records whose lease ran out
func (s *InMemoryIdempotencyStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staleBefore := before.Add(-s.opts.InProgressLease)
	var removed int64
	for key, rec := range s.records {
		switch rec.Status {
		case idempotency.StatusCompleted:
			if rec.ExpiresAt != nil && rec.ExpiresAt.Before(before) {
				delete(s.records, key)
				removed++
			}
		case idempotency.StatusInProgress:
			if rec.UpdatedAt.Before(staleBefore) {
				delete(s.records, key)
				removed++
			}
		}
	}
	return removed, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired records
func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			_, _ = s.Prune(context.Background(), s.clock.Now())
		}
	}
}

// Size returns the number of records in the store (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func copyRecord(r *idempotency.Record) *idempotency.Record {
	c := *r
	return &c
}

// Ensure InMemoryIdempotencyStore implements idempotency.Store
var _ idempotency.Store = (*InMemoryIdempotencyStore)(nil)
