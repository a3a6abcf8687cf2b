package jobs

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is the reference cadence of the sweep loop.
const DefaultSweepInterval = time.Minute

// Handler processes one dispatched job. A returned error marks the job
// failed; failed jobs are logged and discarded, never retried.
type Handler func(ctx context.Context, job Job) error

// Scheduler drives the sweep loop: every interval it takes the due jobs out
// of the store and dispatches them sequentially through the dispatch table.
// One job's failure never affects the others in the same batch.
type Scheduler struct {
	store    *Store
	interval time.Duration
	log      zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewScheduler builds a scheduler sweeping store every interval. A
// non-positive interval falls back to DefaultSweepInterval.
func NewScheduler(store *Store, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register installs the handler for jobType, replacing any previous one.
func (s *Scheduler) Register(jobType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = h
}

// Run executes the sweep loop until ctx is cancelled. The wait between ticks
// observes cancellation, so shutdown is prompt even mid-interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("job sweep loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("job sweep loop stopped")
			return
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Sweep takes every job due at now out of the store and dispatches the batch
// sequentially. It returns the number of jobs taken.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) int {
	due := s.store.TakeDue(now)
	for _, job := range due {
		s.dispatch(ctx, job)
	}
	return len(due)
}

// dispatch routes one job through the handler table. Unknown types are
// dropped with a warning; handler errors and panics mark the job failed
// without aborting the sweep.
func (s *Scheduler) dispatch(ctx context.Context, job Job) {
	s.mu.RLock()
	h, ok := s.handlers[job.Type]
	s.mu.RUnlock()
	if !ok {
		jobsDispatched.WithLabelValues(job.Type, "dropped").Inc()
		s.log.Warn().Str("job_id", job.ID).Str("job_type", job.Type).
			Msg("unrecognized job type dropped")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			jobsDispatched.WithLabelValues(job.Type, "failed").Inc()
			s.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).
				Str("job_id", job.ID).Str("job_type", job.Type).
				Msg("panic in job handler")
		}
	}()

	if err := h(ctx, job); err != nil {
		jobsDispatched.WithLabelValues(job.Type, "failed").Inc()
		s.log.Error().Err(err).Str("job_id", job.ID).Str("job_type", job.Type).
			Msg("job dispatch failed")
		return
	}
	jobsDispatched.WithLabelValues(job.Type, "ok").Inc()
}
