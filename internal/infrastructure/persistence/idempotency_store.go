package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxBeginAttempts bounds the insert/evict loop in Begin. Each retry follows
// a row that disappeared or expired between statements.
const maxBeginAttempts = 3

// GormIdempotencyStore implements idempotency.Store on the
// idempotency_records table. Acquisition is a single
// INSERT ... ON CONFLICT DO NOTHING, so exactly one of any number of
// concurrent requests for the same scope sees OutcomeAcquired.
type GormIdempotencyStore struct {
	db    *gorm.DB
	clock shared.Clock
	opts  idempotency.Options
}

// NewGormIdempotencyStore creates a new GormIdempotencyStore
func NewGormIdempotencyStore(db *gorm.DB, clock shared.Clock, opts idempotency.Options) *GormIdempotencyStore {
	return &GormIdempotencyStore{db: db, clock: clock, opts: opts}
}

// WithTx returns a store bound to the given transaction. Completing through
// it commits the stored response together with the mutation.
func (s *GormIdempotencyStore) WithTx(tx *gorm.DB) *GormIdempotencyStore {
	return &GormIdempotencyStore{db: tx, clock: s.clock, opts: s.opts}
}

// Begin claims the scope or reports its current state
func (s *GormIdempotencyStore) Begin(ctx context.Context, scope idempotency.Scope, requestHash string) (idempotency.BeginResult, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxBeginAttempts; attempt++ {
		now := s.clock.Now()
		row := &models.IdempotencyRecordModel{
			ActorID:     scope.ActorID,
			Endpoint:    scope.Endpoint,
			IdemKey:     scope.Key,
			RequestHash: requestHash,
			Status:      string(idempotency.StatusInProgress),
			Attempt:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if result.Error != nil {
			return idempotency.BeginResult{}, fmt.Errorf("insert idempotency record: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			rec, err := row.ToDomain()
			if err != nil {
				return idempotency.BeginResult{}, err
			}
			return idempotency.BeginResult{Outcome: idempotency.OutcomeAcquired, Record: rec}, nil
		}

		existing, err := s.load(db, scope)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// aborted between our insert and read
			continue
		}
		if err != nil {
			return idempotency.BeginResult{}, err
		}
		rec, err := existing.ToDomain()
		if err != nil {
			return idempotency.BeginResult{}, err
		}

		if rec.IsExpired(now) {
			if err := db.Where(scopeWhere(scope)).
				Where("status = ? AND expires_at <= ?", string(idempotency.StatusCompleted), now).
				Delete(&models.IdempotencyRecordModel{}).Error; err != nil {
				return idempotency.BeginResult{}, fmt.Errorf("evict expired idempotency record: %w", err)
			}
			continue
		}
		if rec.RequestHash != requestHash {
			return idempotency.BeginResult{}, idempotency.ErrKeyReused
		}
		if rec.Status == idempotency.StatusCompleted {
			return idempotency.BeginResult{Outcome: idempotency.OutcomeCompleted, Record: rec}, nil
		}
		if rec.IsStale(now, s.opts.InProgressLease) {
			taken, err := s.takeOver(db, scope, existing.Attempt, now)
			if err != nil {
				return idempotency.BeginResult{}, err
			}
			if taken {
				rec.UpdatedAt = now
				return idempotency.BeginResult{Outcome: idempotency.OutcomeAcquired, Record: rec}, nil
			}
		}
		return idempotency.BeginResult{Outcome: idempotency.OutcomeInProgress, Record: rec}, nil
	}
	return idempotency.BeginResult{}, fmt.Errorf("acquire idempotency record %s: gave up after %d attempts", scope, maxBeginAttempts)
}

// takeOver claims a stale IN_PROGRESS row. The attempt counter is the
// compare-and-swap token so only one contender wins.
func (s *GormIdempotencyStore) takeOver(db *gorm.DB, scope idempotency.Scope, attempt int, now time.Time) (bool, error) {
	result := db.Model(&models.IdempotencyRecordModel{}).
		Where(scopeWhere(scope)).
		Where("status = ? AND attempt = ?", string(idempotency.StatusInProgress), attempt).
		Updates(map[string]any{
			"attempt":    attempt + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("take over idempotency record: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Complete stores the response and marks the record COMPLETED
func (s *GormIdempotencyStore) Complete(ctx context.Context, scope idempotency.Scope, resp idempotency.StoredResponse) error {
	body, err := idempotency.EncodeResponse(resp)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	expires := now.Add(s.opts.Retention)
	encoded := string(body)

	result := s.db.WithContext(ctx).Model(&models.IdempotencyRecordModel{}).
		Where(scopeWhere(scope)).
		Where("status = ?", string(idempotency.StatusInProgress)).
		Updates(map[string]any{
			"status":          string(idempotency.StatusCompleted),
			"response_status": resp.StatusCode,
			"response_body":   encoded,
			"target_type":     resp.TargetType,
			"target_id":       resp.TargetID,
			"completed_at":    now,
			"expires_at":      expires,
			"updated_at":      now,
		})
	if result.Error != nil {
		return fmt.Errorf("complete idempotency record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("complete idempotency record %s: %w", scope, idempotency.ErrNotInProgress)
	}
	return nil
}

// Abort voids an IN_PROGRESS record so the client may retry
func (s *GormIdempotencyStore) Abort(ctx context.Context, scope idempotency.Scope) error {
	if err := s.db.WithContext(ctx).
		Where(scopeWhere(scope)).
		Where("status = ?", string(idempotency.StatusInProgress)).
		Delete(&models.IdempotencyRecordModel{}).Error; err != nil {
		return fmt.Errorf("abort idempotency record: %w", err)
	}
	return nil
}

// Prune deletes completed records that expired before the given time and
// in-progress records abandoned for longer than the lease
func (s *GormIdempotencyStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	abandoned := before.Add(-s.opts.InProgressLease)
	result := s.db.WithContext(ctx).
		Where("(status = ? AND expires_at < ?) OR (status = ? AND updated_at < ?)",
			string(idempotency.StatusCompleted), before,
			string(idempotency.StatusInProgress), abandoned).
		Delete(&models.IdempotencyRecordModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune idempotency records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormIdempotencyStore) load(db *gorm.DB, scope idempotency.Scope) (*models.IdempotencyRecordModel, error) {
	var row models.IdempotencyRecordModel
	if err := db.Where(scopeWhere(scope)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}
	return &row, nil
}

func scopeWhere(scope idempotency.Scope) map[string]any {
	return map[string]any{
		"actor_id": scope.ActorID,
		"endpoint": scope.Endpoint,
		"idem_key": scope.Key,
	}
}

var _ idempotency.Store = (*GormIdempotencyStore)(nil)
