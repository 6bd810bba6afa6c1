package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/observability"
)

// ErrRunInProgress is returned by Trigger when a run is already executing.
var ErrRunInProgress = errors.New("run already in progress")

// Job performs one ingest+analysis cycle.
type Job func(ctx context.Context) (*domain.RunRecord, error)

// Status is a snapshot of the scheduler.
type Status struct {
	Running   bool              `json:"running"`
	Runs      int               `json:"runs"`
	Skipped   int               `json:"skipped"`
	Failures  int               `json:"failures"`
	LastStart time.Time         `json:"last_start,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	LastRun   *domain.RunRecord `json:"last_run,omitempty"`
}

// Scheduler runs a Job on a cron schedule, at most one at a time.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	hub     *Hub
	timeout time.Duration
	baseCtx context.Context
	logger  *zap.Logger
	clock   func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Job      Job
	Hub      *Hub          // optional event sink
	Schedule string        // standard 5-field cron spec, empty disables
	Timeout  time.Duration // per-run timeout, 0 disables
	BaseCtx  context.Context
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewScheduler creates a scheduler. The cron spec is parsed eagerly.
func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if opts.BaseCtx == nil {
		opts.BaseCtx = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Scheduler{
		cron:    cron.New(),
		job:     opts.Job,
		hub:     opts.Hub,
		timeout: opts.Timeout,
		baseCtx: opts.BaseCtx,
		logger:  opts.Logger.With(zap.String("component", "scheduler")),
		clock:   opts.Clock,
	}

	if opts.Schedule != "" {
		_, err := s.cron.AddFunc(opts.Schedule, func() {
			if _, err := s.Trigger(s.baseCtx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error("scheduled run failed", zap.Error(err))
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop halts the schedule and waits for a run in flight.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron stopped")
}

// Running reports whether a run is executing.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Status returns a copy of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.running.Load()
	return st
}

// Trigger runs the job synchronously. It returns ErrRunInProgress without
// running anything when another run holds the slot.
func (s *Scheduler) Trigger(ctx context.Context) (*domain.RunRecord, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("run skipped, previous run still in progress")
		s.mu.Lock()
		s.status.Skipped++
		s.mu.Unlock()
		s.publish(NewEvent(EventRunSkipped, s.clock()), func(ev *Event) {
			ev.Reason = ErrRunInProgress.Error()
		})
		observability.RecordScheduledRun("skipped")
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := s.clock()
	s.mu.Lock()
	s.status.LastStart = start
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("run started")
	rec, err := s.job(ctx)
	if err == nil && rec == nil {
		err = errors.New("job returned no run record")
	}

	s.mu.Lock()
	s.status.Runs++
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.LastRun = rec
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("run failed", zap.Error(err), zap.Duration("elapsed", s.clock().Sub(start)))
		observability.RecordScheduledRun("failed")
		s.publish(NewEvent(EventRunFailed, s.clock()), func(ev *Event) {
			ev.Error = err.Error()
		})
		return nil, err
	}

	s.logger.Info("run finished",
		zap.String("run_id", rec.RunID),
		zap.String("status", rec.Status),
		zap.Duration("elapsed", s.clock().Sub(start)))
	observability.RecordScheduledRun("completed")
	s.publish(NewEvent(EventRunCompleted, s.clock()), func(ev *Event) {
		ev.Run = rec
	})
	return rec, nil
}

func (s *Scheduler) publish(ev Event, fill func(*Event)) {
	if s.hub == nil {
		return
	}
	fill(&ev)
	s.hub.Publish(ev)
}
