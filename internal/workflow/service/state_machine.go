package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/doerdesk/doerdesk-backend/internal/events"
	ledger "github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
	"github.com/doerdesk/doerdesk-backend/internal/metrics"
	"github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

// ProjectStore is the persistence contract the state machine runs on.
// ApplyTransition must be atomic: the conditional status write and the
// history row commit together or not at all.
type ProjectStore interface {
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	ApplyTransition(ctx context.Context, projectID string, from, to domain.Status, stamp domain.StatusStamp, entry *domain.StatusHistoryEntry) (*domain.Project, error)
}

// LedgerChecker answers whether a mandatory money movement exists.
type LedgerChecker interface {
	HasCompletedForProject(ctx context.Context, projectID string, typ ledger.TransactionType) (bool, error)
}

// EventSink receives status_changed events after a commit.
type EventSink interface {
	StatusChanged(ctx context.Context, e events.StatusChanged)
}

// StatsNotifier is told about terminal transitions. Implementations
// must not block; failures there never reach the caller.
type StatsNotifier interface {
	Record(projectID string, to domain.Status)
}

// StateMachine validates and applies project status transitions. It is
// the only component allowed to mutate project status.
type StateMachine struct {
	projects ProjectStore
	ledger   LedgerChecker
	sink     EventSink
	stats    StatsNotifier
	log      *zap.Logger

	grace      time.Duration
	maxRetries int
	now        func() time.Time
}

type Option func(*StateMachine)

// WithGrace sets the delivered -> auto_approved grace window.
func WithGrace(d time.Duration) Option {
	return func(m *StateMachine) { m.grace = d }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *StateMachine) { m.now = now }
}

func NewStateMachine(projects ProjectStore, ledger LedgerChecker, sink EventSink, stats StatsNotifier, log *zap.Logger, opts ...Option) *StateMachine {
	m := &StateMachine{
		projects:   projects,
		ledger:     ledger,
		sink:       sink,
		stats:      stats,
		log:        log,
		grace:      48 * time.Hour,
		maxRetries: 3,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition moves a project to the target status.
func (m *StateMachine) Transition(ctx context.Context, projectID string, target domain.Status, actor domain.Actor, metadata map[string]string) (*domain.Project, error) {
	return m.TransitionWithStamp(ctx, projectID, target, actor, metadata, domain.StatusStamp{})
}

// TransitionWithStamp additionally writes caller-supplied fields (doer
// assignment and the like) atomically with the status change.
//
// Semantics:
//   - target already current: success, no history row (idempotent for
//     caller retries), unless the caller's stamp disagrees with what a
//     concurrent winner wrote, which is ConcurrentModification
//   - edge not whitelisted: InvalidEdge
//   - mandatory ledger side effect absent: SideEffectMissing
//   - lost race on the conditional write: retried up to the bound, then
//     ConcurrentModification
//   - history write failure: the status change rolls back with it
func (m *StateMachine) TransitionWithStamp(ctx context.Context, projectID string, target domain.Status, actor domain.Actor, metadata map[string]string, extra domain.StatusStamp) (*domain.Project, error) {
	if !target.IsValid() {
		return nil, &domain.TransitionError{ProjectID: projectID, To: target, Reason: domain.ErrUnknownStatus}
	}

	var lastFrom domain.Status
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		p, err := m.projects.Get(ctx, projectID)
		if err != nil {
			return nil, err
		}
		lastFrom = p.Status

		if p.Status == target {
			if stampConflict(p, extra) {
				metrics.TransitionErrorsTotal.WithLabelValues("concurrent_modification").Inc()
				return nil, &domain.TransitionError{ProjectID: projectID, From: p.Status, To: target, Reason: domain.ErrConcurrentModification}
			}
			return p, nil
		}

		if !domain.CanTransition(p.Status, target) {
			metrics.TransitionErrorsTotal.WithLabelValues("invalid_edge").Inc()
			return nil, &domain.TransitionError{ProjectID: projectID, From: p.Status, To: target, Reason: domain.ErrInvalidEdge}
		}

		if err := m.checkSideEffects(ctx, p, target); err != nil {
			metrics.TransitionErrorsTotal.WithLabelValues("side_effect_missing").Inc()
			return nil, err
		}

		stamp := m.stampFor(target, extra)
		entry := &domain.StatusHistoryEntry{
			ProjectID:  projectID,
			FromStatus: p.Status,
			ToStatus:   target,
			ActorType:  actor.Type,
			ActorID:    actor.ID,
			Metadata:   metadata,
		}

		next, err := m.projects.ApplyTransition(ctx, projectID, p.Status, target, stamp, entry)
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue
		}
		if errors.Is(err, domain.ErrAuditWriteFailed) {
			metrics.TransitionErrorsTotal.WithLabelValues("audit_write_failed").Inc()
			m.log.Error("history write failed, transition aborted",
				zap.String("project_id", projectID),
				zap.String("to", string(target)), zap.Error(err))
			return nil, &domain.TransitionError{ProjectID: projectID, From: p.Status, To: target, Reason: domain.ErrAuditWriteFailed}
		}
		if err != nil {
			return nil, err
		}

		m.committed(ctx, next, p.Status, target, actor)
		return next, nil
	}

	metrics.TransitionErrorsTotal.WithLabelValues("concurrent_modification").Inc()
	return nil, &domain.TransitionError{ProjectID: projectID, From: lastFrom, To: target, Reason: domain.ErrConcurrentModification}
}

// stampConflict reports whether a caller-supplied assignment disagrees
// with what is already stored on the project. A stamp-free retry of a
// landed transition stays a no-op; a conflicting one lost the race.
func stampConflict(p *domain.Project, extra domain.StatusStamp) bool {
	if extra.DoerID != nil && (p.DoerID == nil || *p.DoerID != *extra.DoerID) {
		return true
	}
	if extra.SupervisorID != nil && (p.SupervisorID == nil || *p.SupervisorID != *extra.SupervisorID) {
		return true
	}
	return false
}

func (m *StateMachine) checkSideEffects(ctx context.Context, p *domain.Project, target domain.Status) error {
	for _, typ := range domain.RequiredSideEffects(target) {
		ok, err := m.ledger.HasCompletedForProject(ctx, p.ID, typ)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.TransitionError{ProjectID: p.ID, From: p.Status, To: target, Reason: domain.ErrSideEffectMissing}
		}
	}
	return nil
}

func (m *StateMachine) stampFor(target domain.Status, extra domain.StatusStamp) domain.StatusStamp {
	now := m.now().UTC()
	stamp := extra
	switch target {
	case domain.StatusPaid:
		paid := true
		stamp.IsPaid = &paid
		stamp.PaidAt = &now
	case domain.StatusDelivered:
		approveAt := now.Add(m.grace)
		stamp.DeliveredAt = &now
		stamp.AutoApproveAt = &approveAt
	case domain.StatusCompleted:
		stamp.CompletedAt = &now
	}
	return stamp
}

func (m *StateMachine) committed(ctx context.Context, p *domain.Project, from, to domain.Status, actor domain.Actor) {
	metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	m.log.Info("project transitioned",
		zap.String("project_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", string(actor.Type)),
	)

	if m.sink != nil {
		m.sink.StatusChanged(ctx, events.StatusChanged{
			ProjectID:  p.ID,
			FromStatus: string(from),
			ToStatus:   string(to),
			ActorType:  string(actor.Type),
			ActorID:    actor.ID,
			OccurredAt: m.now().UTC(),
		})
	}

	if m.stats != nil && to.IsTerminal() {
		m.stats.Record(p.ID, to)
	}
}
