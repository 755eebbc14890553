package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

type requestMetaKey struct{}

// RequestMeta is the per-request context copied onto every audit row
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// WithRequestMeta stores request metadata in ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the request metadata stored in ctx, if any
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// Entry describes an audit row to write
type Entry struct {
	ActorID        uuid.UUID
	ActorRole      identity.AdminRole
	Action         Action
	TargetType     string
	TargetID       string
	IdempotencyKey string
	Before         map[string]any
	After          map[string]any
	Metadata       map[string]any
	Result         Result
	ErrorCode      string
}

// Writer turns entries into audit rows. The caller passes the repository so
// a row written inside a transaction commits or rolls back with it.
type Writer struct {
	clock shared.Clock
}

// NewWriter creates a writer using clock for timestamps
func NewWriter(clock shared.Clock) *Writer {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Writer{clock: clock}
}

// Record builds and persists one audit row
func (w *Writer) Record(ctx context.Context, repo Repository, e Entry) (*AuditLog, error) {
	result := e.Result
	if result == "" {
		result = ResultSuccess
	}
	log, err := NewAuditLog(e.Action, e.TargetType, e.TargetID, result, w.clock.Now())
	if err != nil {
		return nil, err
	}

	if e.ActorID != uuid.Nil {
		id := e.ActorID
		log.ActorID = &id
	}
	meta := RequestMetaFrom(ctx)
	log.ActorRole = e.ActorRole
	log.RequestID = meta.RequestID
	log.IPAddress = meta.IPAddress
	log.UserAgent = truncate(meta.UserAgent, 512)
	log.IdempotencyKey = e.IdempotencyKey
	log.Before = e.Before
	log.After = e.After
	log.Metadata = e.Metadata
	log.ErrorCode = e.ErrorCode

	if err := repo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("write audit log %s: %w", e.Action, err)
	}
	return log, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
