package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	workflow "github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

// Recomputer refreshes participant stats from the projects table.
type Recomputer interface {
	RecomputeDoer(ctx context.Context, doerID string) error
	RecomputeSupervisor(ctx context.Context, supervisorID string) error
}

// ProjectGetter resolves a project's doer/supervisor refs.
type ProjectGetter interface {
	Get(ctx context.Context, projectID string) (*workflow.Project, error)
}

type job struct {
	projectID string
	to        workflow.Status
	attempts  int
}

// Aggregator recomputes rolling stats when projects hit a terminal
// state. It is strictly fire-and-forget from the transition's point of
// view: Record never blocks, and a failed recompute is retried by the
// worker, never surfaced to the caller.
type Aggregator struct {
	store    Recomputer
	projects ProjectGetter
	log      *zap.Logger

	queue   chan job
	limiter *rate.Limiter
	done    chan struct{}
}

const maxAttempts = 3

func NewAggregator(store Recomputer, projects ProjectGetter, log *zap.Logger, queueSize int) *Aggregator {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Aggregator{
		store:    store,
		projects: projects,
		log:      log,
		queue:    make(chan job, queueSize),
		limiter:  rate.NewLimiter(rate.Limit(20), 5),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (a *Aggregator) Start(ctx context.Context) {
	go a.run(ctx)
}

// Stop waits for the worker to drain after its context is cancelled.
func (a *Aggregator) Stop() {
	<-a.done
}

// Record enqueues a recompute for a terminal transition. If the queue
// is full the job is dropped with a log line rather than blocking the
// transition that triggered it.
func (a *Aggregator) Record(projectID string, to workflow.Status) {
	select {
	case a.queue <- job{projectID: projectID, to: to}:
	default:
		a.log.Warn("stats queue full, dropping recompute",
			zap.String("project_id", projectID), zap.String("to", string(to)))
	}
}

func (a *Aggregator) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-a.queue:
			if err := a.limiter.Wait(ctx); err != nil {
				return
			}
			a.process(ctx, j)
		}
	}
}

func (a *Aggregator) process(ctx context.Context, j job) {
	err := a.recompute(ctx, j)
	if err == nil {
		return
	}

	j.attempts++
	if j.attempts >= maxAttempts {
		a.log.Error("stats recompute abandoned",
			zap.String("project_id", j.projectID),
			zap.Int("attempts", j.attempts), zap.Error(err))
		return
	}

	a.log.Warn("stats recompute failed, requeueing",
		zap.String("project_id", j.projectID), zap.Error(err))
	time.AfterFunc(time.Second*time.Duration(j.attempts), func() {
		select {
		case a.queue <- j:
		default:
		}
	})
}

func (a *Aggregator) recompute(ctx context.Context, j job) error {
	p, err := a.projects.Get(ctx, j.projectID)
	if err != nil {
		return err
	}

	if p.DoerID != nil {
		if err := a.store.RecomputeDoer(ctx, *p.DoerID); err != nil {
			return err
		}
	}
	if p.SupervisorID != nil {
		if err := a.store.RecomputeSupervisor(ctx, *p.SupervisorID); err != nil {
			return err
		}
	}
	return nil
}
