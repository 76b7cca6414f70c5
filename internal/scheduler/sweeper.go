package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/doerdesk/doerdesk-backend/internal/metrics"
	workflow "github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

// DueLister finds delivered projects whose grace deadline has passed.
type DueLister interface {
	DueForAutoApproval(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// AutoApprover forces the auto_approved transition for one project.
type AutoApprover interface {
	AutoApprove(ctx context.Context, projectID string) error
}

// Sweeper drives time-based auto-approval. It is safe to run from any
// number of concurrent processes: the candidate list is only advisory,
// the claim is the state machine's conditional status update, so a
// project lost to another sweeper surfaces as a no-op or a concurrency
// error and is simply skipped.
type Sweeper struct {
	projects DueLister
	engine   AutoApprover
	log      *zap.Logger

	batchSize int
	limiter   *rate.Limiter
	now       func() time.Time
}

func NewSweeper(projects DueLister, engine AutoApprover, log *zap.Logger, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sweeper{
		projects:  projects,
		engine:    engine,
		log:       log,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(10), 2),
		now:       time.Now,
	}
}

// SweepOnce processes one batch of due projects. Returns how many were
// auto-approved by this sweeper instance.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.projects.DueForAutoApproval(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	approved := 0
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return approved, err
		}
		metrics.SweepClaimsTotal.Inc()

		err := s.engine.AutoApprove(ctx, id)
		switch {
		case err == nil:
			approved++
			metrics.AutoApprovalsTotal.Inc()
		case errors.Is(err, workflow.ErrConcurrentModification),
			errors.Is(err, workflow.ErrInvalidEdge):
			// another sweeper, or a user decision, got there first
			s.log.Debug("auto approval skipped", zap.String("project_id", id), zap.Error(err))
		default:
			s.log.Error("auto approval failed", zap.String("project_id", id), zap.Error(err))
		}
	}

	s.log.Info("auto approval sweep done",
		zap.Int("candidates", len(ids)), zap.Int("approved", approved))
	return approved, nil
}
