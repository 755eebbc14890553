package idempotency

import (
	"context"
	"time"
)

// Store persists idempotency records.
//
// Begin decides atomically which request owns a scope. It returns
// OutcomeAcquired when a new IN_PROGRESS record was created (or a stale one
// taken over), OutcomeCompleted with the stored response, or
// OutcomeInProgress. A key reused with a different request hash fails with
// ErrKeyReused.
type Store interface {
	Begin(ctx context.Context, scope Scope, requestHash string) (BeginResult, error)

	// Complete stores the response and marks the record COMPLETED
	Complete(ctx context.Context, scope Scope, resp StoredResponse) error

	// Abort voids an IN_PROGRESS record so the client may retry
	Abort(ctx context.Context, scope Scope) error

	// Prune deletes records that expired before the given time
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Options tune store timing
type Options struct {
	// Retention is how long a completed record is replayed
	Retention time.Duration
	// InProgressLease is how long an IN_PROGRESS record is honoured before
	// another request may take it over
	InProgressLease time.Duration
}

// DefaultOptions keeps completed records for 48 hours with a 30 second lease
func DefaultOptions() Options {
	return Options{
		Retention:       48 * time.Hour,
		InProgressLease: 30 * time.Second,
	}
}
