// Package admin implements the back-office request pipeline and the admin
// services built on it. Every mutation passes the same ordered stages:
// authorize, claim the idempotency key, mutate with transition checks,
// audit, mask and store the response for replay.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/privacy"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PipelineOptions tune the pipeline
type PipelineOptions struct {
	// RecordDenials writes a FAIL audit row when a mutation is forbidden
	RecordDenials bool
	// InFlightWait is how long a request waits for a concurrent request
	// holding the same key before failing with CONFLICT. Zero fails fast.
	InFlightWait time.Duration
	// PollInterval is the Begin retry interval while waiting
	PollInterval time.Duration
	// CompleteInTx completes the idempotency record inside the mutation
	// transaction through Repositories.Idempotency. Only valid when the
	// store lives in the same database. Otherwise the record is completed
	// after commit and a failure there is returned to the caller.
	CompleteInTx bool
}

// DefaultPipelineOptions records denials, fails fast on in-flight keys and
// completes records inside the transaction
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		RecordDenials: true,
		PollInterval:  100 * time.Millisecond,
		CompleteInTx:  true,
	}
}

// Mutation describes one mutating admin request
type Mutation struct {
	// Endpoint is the route template, e.g. "PATCH /admin/returns/:id".
	// It scopes the idempotency key.
	Endpoint   string
	Permission identity.Permission
	Action     audit.Action
	TargetType string
	TargetID   string
	// IdempotencyKey is the client key from the body or header
	IdempotencyKey string
	// Request is hashed to detect key reuse with a different payload
	Request any
}

// Change is what a MutateFunc reports back to the pipeline
type Change struct {
	// Action overrides Mutation.Action, e.g. REFUND_EXECUTED
	Action audit.Action
	// TargetID overrides Mutation.TargetID for creates
	TargetID string
	Before   map[string]any
	After    map[string]any
	Metadata map[string]any

	StatusCode int
	Message    string
	Data       any

	// OnCommit runs after the transaction committed. Failures are logged.
	OnCommit func(ctx context.Context) error
}

// MutateFunc applies a mutation using transaction-bound repositories
type MutateFunc func(ctx context.Context, repos Repositories) (*Change, error)

// LoadFunc loads the payload of a read
type LoadFunc func(ctx context.Context, repos Repositories) (any, error)

// Read describes one read request
type Read struct {
	Permission identity.Permission
	TargetType string
	TargetID   string
}

// Result is the response of a pipeline call. Data is a JSON tree that has
// already been masked for the actor.
type Result struct {
	StatusCode int
	Message    string
	Data       any
	Replayed   bool
	TargetType string
	TargetID   string
}

// Pipeline runs admin requests through the authorization, idempotency,
// audit and masking stages
type Pipeline struct {
	txScope  TransactionScope
	repos    Repositories
	store    idempotency.Store
	writer   *audit.Writer
	masker   *privacy.Engine
	clock    shared.Clock
	observer Observer
	opts     PipelineOptions
	logger   *zap.Logger
}

// PipelineDeps are the collaborators of a Pipeline
type PipelineDeps struct {
	TxScope TransactionScope
	// Repos serves reads and denial audits outside any transaction
	Repos    Repositories
	Store    idempotency.Store
	Masker   *privacy.Engine
	Clock    shared.Clock
	Observer Observer
	Logger   *zap.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Masker == nil {
		deps.Masker = privacy.NewEngine()
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &Pipeline{
		txScope:  deps.TxScope,
		repos:    deps.Repos,
		store:    deps.Store,
		writer:   audit.NewWriter(deps.Clock),
		masker:   deps.Masker,
		clock:    deps.Clock,
		observer: deps.Observer,
		opts:     opts,
		logger:   deps.Logger,
	}
}

// Clock returns the pipeline clock
func (p *Pipeline) Clock() shared.Clock {
	return p.clock
}

// Repositories returns the non-transactional repositories
func (p *Pipeline) Repositories() Repositories {
	return p.repos
}

// Mutate runs a mutation. A failed mutation voids its idempotency record so
// the client can retry with the same key.
func (p *Pipeline) Mutate(ctx context.Context, actor Actor, m Mutation, fn MutateFunc) (*Result, error) {
	ctx, span := telemetry.StartMutationSpan(ctx, m.Endpoint, string(m.Permission), string(actor.Role))
	defer span.End()

	start := time.Now()
	res, err := p.mutate(ctx, actor, m, fn)
	replayed := res != nil && res.Replayed
	code := resultCode(err)
	p.observer.MutationFinished(m.Endpoint, code, replayed, time.Since(start))

	span.SetResult(code, replayed, code == shared.CodeInternal, err)
	if res != nil {
		span.SetTarget(res.TargetType, res.TargetID)
	}
	return res, err
}

func (p *Pipeline) mutate(ctx context.Context, actor Actor, m Mutation, fn MutateFunc) (*Result, error) {
	if !actor.Can(m.Permission) {
		p.observer.AccessDenied(m.Permission)
		p.recordDenial(ctx, actor, m, m.TargetID, shared.ErrForbidden)
		return nil, shared.ErrForbidden.WithDetails(map[string]any{"required_permission": string(m.Permission)})
	}

	scope, err := idempotency.NewScope(actor.ID, m.Endpoint, m.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	hash, err := idempotency.HashRequest(m.Request)
	if err != nil {
		return nil, fmt.Errorf("hash %s request: %w", m.Endpoint, err)
	}

	begin, err := p.begin(ctx, scope, hash)
	if err != nil {
		return nil, err
	}
	p.observer.IdempotencyOutcome(m.Endpoint, begin.Outcome)
	telemetry.MutationSpanFromContext(ctx).SetOutcome(begin.Outcome)
	switch begin.Outcome {
	case idempotency.OutcomeCompleted:
		return p.replay(ctx, actor, m, begin.Record)
	case idempotency.OutcomeInProgress:
		return nil, idempotency.ErrInProgress
	}

	// The client going away must not leave a half-applied mutation or a
	// dangling IN_PROGRESS record behind.
	execCtx := context.WithoutCancel(ctx)
	res, stored, onCommit, err := p.execute(execCtx, actor, m, scope, fn)
	if err != nil {
		if abortErr := p.store.Abort(execCtx, scope); abortErr != nil {
			p.logger.Error("Failed to void idempotency record",
				zap.String("scope", scope.String()), zap.Error(abortErr))
		}
		if shared.CodeOf(err) == shared.CodeForbidden {
			p.observer.AccessDenied(m.Permission)
			p.recordDenial(execCtx, actor, m, m.TargetID, err)
		}
		return nil, err
	}

	if !p.opts.CompleteInTx {
		if err := p.complete(execCtx, scope, *stored); err != nil {
			p.logger.Error("Failed to complete idempotency record after commit",
				zap.String("scope", scope.String()),
				zap.String("target_id", res.TargetID),
				zap.Error(err))
			return nil, errCommittedNotRecorded.WithDetails(map[string]any{
				"committed":   true,
				"target_type": res.TargetType,
				"target_id":   res.TargetID,
			})
		}
	}
	if onCommit != nil {
		if err := onCommit(execCtx); err != nil {
			p.logger.Error("Post-commit hook failed",
				zap.String("endpoint", m.Endpoint),
				zap.String("target_id", res.TargetID),
				zap.Error(err))
		}
	}
	return res, nil
}

// completeAttempts bounds how often a post-commit Complete is tried
const completeAttempts = 3

// errCommittedNotRecorded reports a committed mutation whose response could
// not be stored for replay. Until the lease expires a retry with the same key
// conflicts; after it the mutation may run again.
var errCommittedNotRecorded = shared.NewDomainError(shared.CodeInternal,
	"The change was applied but could not be recorded for replay; verify it before retrying")

// complete stores the response in an external store, retrying at the poll
// interval
func (p *Pipeline) complete(ctx context.Context, scope idempotency.Scope, resp idempotency.StoredResponse) error {
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = p.store.Complete(ctx, scope, resp); err == nil {
			return nil
		}
		p.logger.Warn("Completing idempotency record failed",
			zap.String("scope", scope.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < completeAttempts {
			time.Sleep(p.opts.PollInterval)
		}
	}
	return err
}

// begin claims the scope, polling while another request holds it
func (p *Pipeline) begin(ctx context.Context, scope idempotency.Scope, hash string) (idempotency.BeginResult, error) {
	deadline := time.Now().Add(p.opts.InFlightWait)
	for {
		res, err := p.store.Begin(ctx, scope, hash)
		if err != nil || res.Outcome != idempotency.OutcomeInProgress {
			return res, err
		}
		if p.opts.InFlightWait <= 0 || !time.Now().Before(deadline) {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(p.opts.PollInterval):
		}
	}
}

func (p *Pipeline) execute(
	ctx context.Context,
	actor Actor,
	m Mutation,
	scope idempotency.Scope,
	fn MutateFunc,
) (*Result, *idempotency.StoredResponse, func(context.Context) error, error) {
	var (
		result   *Result
		stored   *idempotency.StoredResponse
		onCommit func(context.Context) error
	)
	err := p.txScope.Execute(ctx, func(repos Repositories) error {
		change, err := fn(ctx, repos)
		if err != nil {
			return err
		}

		action := m.Action
		if change.Action != "" {
			action = change.Action
		}
		targetID := m.TargetID
		if change.TargetID != "" {
			targetID = change.TargetID
		}

		if _, err := p.writer.Record(ctx, repos.AuditLogs(), audit.Entry{
			ActorID:        actor.ID,
			ActorRole:      actor.Role,
			Action:         action,
			TargetType:     m.TargetType,
			TargetID:       targetID,
			IdempotencyKey: scope.Key,
			Before:         p.maskSnapshot(change.Before),
			After:          p.maskSnapshot(change.After),
			Metadata:       change.Metadata,
		}); err != nil {
			return err
		}

		masked, err := p.masker.Apply(change.Data, actor.Permissions)
		if err != nil {
			return err
		}
		if masked.FullView {
			if err := p.recordFullView(ctx, repos.AuditLogs(), actor, m.TargetType, targetID, scope.Key, masked.Fields); err != nil {
				return err
			}
		}

		data, err := json.Marshal(masked.Payload)
		if err != nil {
			return fmt.Errorf("encode %s response: %w", m.Endpoint, err)
		}
		status := change.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		stored = &idempotency.StoredResponse{
			StatusCode: status,
			Message:    change.Message,
			Data:       data,
			TargetType: m.TargetType,
			TargetID:   targetID,
		}
		if p.opts.CompleteInTx {
			if err := repos.Idempotency().Complete(ctx, scope, *stored); err != nil {
				return err
			}
		}

		result = &Result{
			StatusCode: status,
			Message:    change.Message,
			Data:       masked.Payload,
			TargetType: m.TargetType,
			TargetID:   targetID,
		}
		onCommit = change.OnCommit
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return result, stored, onCommit, nil
}

// replay returns a stored response. Masking is applied again for the
// actor's current permissions and a full view is audited every time.
func (p *Pipeline) replay(ctx context.Context, actor Actor, m Mutation, rec *idempotency.Record) (*Result, error) {
	if rec == nil || rec.Response == nil {
		return nil, shared.NewDomainError(shared.CodeInternal, "Stored response is missing")
	}
	resp := rec.Response

	var payload any
	if len(resp.Data) > 0 {
		payload = resp.Data
	}
	masked, err := p.masker.Apply(payload, actor.Permissions)
	if err != nil {
		return nil, err
	}
	if masked.FullView {
		if err := p.recordFullView(ctx, p.repos.AuditLogs(), actor, resp.TargetType, resp.TargetID, rec.Key, masked.Fields); err != nil {
			return nil, err
		}
	}

	p.logger.Debug("Replaying idempotent response",
		zap.String("endpoint", m.Endpoint),
		zap.String("idempotency_key", rec.Key))

	return &Result{
		StatusCode: resp.StatusCode,
		Message:    resp.Message,
		Data:       masked.Payload,
		Replayed:   true,
		TargetType: resp.TargetType,
		TargetID:   resp.TargetID,
	}, nil
}

// Read authorizes a read, loads the payload and masks it. A full view of
// PII writes one PII_FULL_VIEW audit row before the payload is returned.
func (p *Pipeline) Read(ctx context.Context, actor Actor, r Read, load LoadFunc) (any, error) {
	if !actor.Can(r.Permission) {
		p.observer.AccessDenied(r.Permission)
		return nil, shared.ErrForbidden.WithDetails(map[string]any{"required_permission": string(r.Permission)})
	}

	data, err := load(ctx, p.repos)
	if err != nil {
		return nil, err
	}
	masked, err := p.masker.Apply(data, actor.Permissions)
	if err != nil {
		return nil, err
	}
	if masked.FullView {
		if err := p.recordFullView(ctx, p.repos.AuditLogs(), actor, r.TargetType, r.TargetID, "", masked.Fields); err != nil {
			return nil, err
		}
	}
	return masked.Payload, nil
}

func (p *Pipeline) recordFullView(ctx context.Context, repo audit.Repository, actor Actor, targetType, targetID, key string, fields int) error {
	_, err := p.writer.Record(ctx, repo, audit.Entry{
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Action:         audit.ActionPIIFullView,
		TargetType:     targetType,
		TargetID:       targetID,
		IdempotencyKey: key,
		Metadata:       map[string]any{"fields": fields},
	})
	if err == nil {
		p.observer.FullViewRecorded(targetType)
	}
	return err
}

// recordDenial writes a FAIL row outside any transaction. Failures are only
// logged so the caller still sees FORBIDDEN.
func (p *Pipeline) recordDenial(ctx context.Context, actor Actor, m Mutation, targetID string, cause error) {
	if !p.opts.RecordDenials || m.Action == "" {
		return
	}
	metadata := map[string]any{
		"endpoint":            m.Endpoint,
		"required_permission": string(m.Permission),
	}
	var de *shared.DomainError
	if errors.As(cause, &de) {
		maps.Copy(metadata, de.Details)
	}
	_, err := p.writer.Record(context.WithoutCancel(ctx), p.repos.AuditLogs(), audit.Entry{
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Action:         m.Action,
		TargetType:     m.TargetType,
		TargetID:       targetID,
		IdempotencyKey: m.IdempotencyKey,
		Metadata:       metadata,
		Result:         audit.ResultFail,
		ErrorCode:      shared.CodeForbidden,
	})
	if err != nil {
		p.logger.Error("Failed to record denied request", zap.String("endpoint", m.Endpoint), zap.Error(err))
	}
}

func (p *Pipeline) maskSnapshot(snapshot map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	tree, err := p.masker.Mask(snapshot)
	if err != nil {
		p.logger.Warn("Dropping unmaskable audit snapshot", zap.Error(err))
		return nil
	}
	m, _ := tree.(map[string]any)
	return m
}

func resultCode(err error) string {
	if err == nil {
		return "OK"
	}
	return shared.CodeOf(err)
}
