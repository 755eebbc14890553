package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*persistence.GormIdempotencyStore, *shared.ManualClock) {
	t.Helper()
	clock := shared.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	return persistence.NewGormIdempotencyStore(testutil.NewSQLiteDB(t), clock, idempotency.DefaultOptions()), clock
}

func testScope(t *testing.T, key string) idempotency.Scope {
	t.Helper()
	scope, err := idempotency.NewScope(uuid.MustParse("11111111-1111-1111-1111-111111111111"), "PATCH /api/v1/admin/orders/:order_no", key)
	require.NoError(t, err)
	return scope
}

func TestGormIdempotencyStore_Lifecycle(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-1")

	res, err := store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome)

	res, err = store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeInProgress, res.Outcome)

	require.NoError(t, store.Complete(ctx, scope, idempotency.StoredResponse{
		StatusCode: 200,
		Message:    "Order updated",
		Data:       []byte(`{"order_no":"ORD-1"}`),
		TargetType: "Order",
		TargetID:   "ORD-1",
	}))

	clock.Advance(time.Hour)
	res, err = store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.Record.Response)
	assert.Equal(t, 200, res.Record.Response.StatusCode)
	assert.Equal(t, "Order updated", res.Record.Response.Message)
	assert.JSONEq(t, `{"order_no":"ORD-1"}`, string(res.Record.Response.Data))
	assert.Equal(t, "ORD-1", res.Record.Response.TargetID)
}

func TestGormIdempotencyStore_HashMismatch(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-2")

	_, err := store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)

	_, err = store.Begin(ctx, scope, "hash-b")
	assert.True(t, errors.Is(err, idempotency.ErrKeyReused))
}

func TestGormIdempotencyStore_ScopesAreIndependent(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	a := testScope(t, "same")
	b := a
	b.Endpoint = "POST /api/v1/admin/returns"
	c := a
	c.ActorID = uuid.New()

	for _, scope := range []idempotency.Scope{a, b, c} {
		res, err := store.Begin(ctx, scope, "hash")
		require.NoError(t, err)
		assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome, scope.String())
	}
}

func TestGormIdempotencyStore_AbortAllowsRetry(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-3")

	_, err := store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)
	require.NoError(t, store.Abort(ctx, scope))

	res, err := store.Begin(ctx, scope, "hash-b")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome)
}

func TestGormIdempotencyStore_CompleteRequiresInProgress(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-4")

	err := store.Complete(ctx, scope, idempotency.StoredResponse{StatusCode: 200})
	assert.ErrorIs(t, err, idempotency.ErrNotInProgress)

	_, err = store.Begin(ctx, scope, "hash")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, scope, idempotency.StoredResponse{StatusCode: 200}))

	err = store.Complete(ctx, scope, idempotency.StoredResponse{StatusCode: 500})
	assert.ErrorIs(t, err, idempotency.ErrNotInProgress)

	// Completed records are not voided by Abort
	require.NoError(t, store.Abort(ctx, scope))
	res, err := store.Begin(ctx, scope, "hash")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeCompleted, res.Outcome)
}

func TestGormIdempotencyStore_StaleTakeover(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-5")

	_, err := store.Begin(ctx, scope, "hash")
	require.NoError(t, err)

	clock.Advance(idempotency.DefaultOptions().InProgressLease + time.Second)
	res, err := store.Begin(ctx, scope, "hash")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome)

	// The lease restarts for the new owner
	res, err = store.Begin(ctx, scope, "hash")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeInProgress, res.Outcome)
}

func TestGormIdempotencyStore_ExpiredRecordIsReplaced(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "key-6")

	_, err := store.Begin(ctx, scope, "hash-a")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, scope, idempotency.StoredResponse{StatusCode: 200}))

	clock.Advance(idempotency.DefaultOptions().Retention)
	res, err := store.Begin(ctx, scope, "hash-b")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome)
}

func TestGormIdempotencyStore_ConcurrentBeginAcquiresOnce(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	scope := testScope(t, "race")

	const n = 16
	outcomes := make([]idempotency.Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.Begin(ctx, scope, "hash")
			outcomes[i], errs[i] = res.Outcome, err
		}(i)
	}
	wg.Wait()

	acquired := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if outcomes[i] == idempotency.OutcomeAcquired {
			acquired++
		}
	}
	assert.Equal(t, 1, acquired)
}

func TestGormIdempotencyStore_Prune(t *testing.T) {
	store, clock := newStore(t)
	ctx := context.Background()
	opts := idempotency.DefaultOptions()

	done := testScope(t, "done")
	_, err := store.Begin(ctx, done, "h")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, done, idempotency.StoredResponse{StatusCode: 200}))

	abandoned := testScope(t, "abandoned")
	_, err = store.Begin(ctx, abandoned, "h")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	fresh := testScope(t, "fresh")
	_, err = store.Begin(ctx, fresh, "h")
	require.NoError(t, err)

	n, err := store.Prune(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the abandoned in-progress record is past its lease")

	n, err = store.Prune(ctx, clock.Now().Add(opts.Retention))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	res, err := store.Begin(ctx, done, "h")
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeAcquired, res.Outcome)
}

func TestGormIdempotencyStore_InsertFailure(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	clock := shared.FixedClock{T: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := persistence.NewGormIdempotencyStore(mockDB.DB, clock, idempotency.DefaultOptions())

	mockDB.Mock.ExpectQuery(`INSERT INTO "idempotency_records"`).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Begin(context.Background(), testScope(t, "k"), "h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert idempotency record")
}
