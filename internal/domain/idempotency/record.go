// Package idempotency defines replay protection for admin mutations. A
// record is keyed by (actor, endpoint, client key) and captures the first
// response so a retry returns it instead of mutating again.
package idempotency

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// MaxKeyLength is the longest accepted client key
const MaxKeyLength = 128

// Status is the lifecycle state of a record
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Outcome is the result of Begin
type Outcome int

const (
	// OutcomeAcquired means the caller owns the record and must execute
	OutcomeAcquired Outcome = iota
	// OutcomeInProgress means another request holds the key right now
	OutcomeInProgress
	// OutcomeCompleted means the stored response must be replayed
	OutcomeCompleted
)

// String returns the outcome name for logs and metrics
func (o Outcome) String() string {
	switch o {
	case OutcomeAcquired:
		return "acquired"
	case OutcomeInProgress:
		return "in_progress"
	case OutcomeCompleted:
		return "completed"
	}
	return "unknown"
}

// Errors returned by stores and key parsing
var (
	ErrKeyRequired = shared.NewValidationError("Idempotency key is required for this request",
		map[string]any{"idempotency_key": "required"})
	ErrKeyTooLong = shared.NewValidationError("Idempotency key is too long",
		map[string]any{"idempotency_key": "max 128 characters"})
	ErrKeyReused = shared.NewValidationError("Idempotency key was already used with a different request",
		map[string]any{"idempotency_key": "request mismatch"})
	ErrInProgress = shared.NewDomainError(shared.CodeConflict,
		"A request with this idempotency key is still in progress")

	// ErrNotInProgress is returned by Complete when the record was voided
	// or already completed
	ErrNotInProgress = errors.New("idempotency record is not in progress")
)

// Scope identifies a record
type Scope struct {
	ActorID  uuid.UUID
	Endpoint string
	Key      string
}

// NewScope validates the key and builds a scope
func NewScope(actorID uuid.UUID, endpoint, key string) (Scope, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Scope{}, ErrKeyRequired
	}
	if len(key) > MaxKeyLength {
		return Scope{}, ErrKeyTooLong
	}
	return Scope{ActorID: actorID, Endpoint: endpoint, Key: key}, nil
}

// String renders the scope as a flat cache key
func (s Scope) String() string {
	return s.ActorID.String() + "|" + s.Endpoint + "|" + s.Key
}

// StoredResponse is the captured first response
type StoredResponse struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
}

// EncodeResponse serializes a stored response for persistence
func EncodeResponse(r StoredResponse) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode idempotent response: %w", err)
	}
	return b, nil
}

// DecodeResponse parses a response written by EncodeResponse
func DecodeResponse(b []byte) (*StoredResponse, error) {
	var r StoredResponse
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}
	return &r, nil
}

// Record is a persisted idempotency entry
type Record struct {
	Scope
	RequestHash string
	Status      Status
	Response    *StoredResponse
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	ExpiresAt   *time.Time
}

// IsStale reports whether an in-progress record outlived its lease
func (r *Record) IsStale(now time.Time, lease time.Duration) bool {
	return r.Status == StatusInProgress && lease > 0 && now.Sub(r.UpdatedAt) > lease
}

// IsExpired reports whether a completed record passed its retention
func (r *Record) IsExpired(now time.Time) bool {
	return r.Status == StatusCompleted && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// BeginResult is returned by Store.Begin
type BeginResult struct {
	Outcome Outcome
	Record  *Record
}
