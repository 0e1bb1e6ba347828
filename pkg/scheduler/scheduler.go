package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helpmebro911/panel/pkg/log"
)

// JobFunc is one tick of a periodic job. The passed instant is the
// tick's wall-clock time in UTC; jobs must treat it as "now" instead of
// calling time.Now so a whole tick shares a single evaluation instant.
type JobFunc func(ctx context.Context, now time.Time) error

// Job is a named periodic task
type Job struct {
	Name     string
	Interval time.Duration

	// RunOnStart fires the job once immediately when the scheduler
	// starts, before the first interval elapses.
	RunOnStart bool

	Fn JobFunc
}

// Scheduler runs registered jobs on independent tickers. A failed tick
// is logged and retried on the next interval; jobs own their
// idempotency.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		stopCh: make(chan struct{}),
	}
}

// Register adds a job before the scheduler starts
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if job.Fn == nil {
		return fmt.Errorf("job %s: no function", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("job %s: scheduler already started", job.Name)
	}
	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("job %s: already registered", job.Name)
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches one goroutine per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.run(ctx, job)
	}
	return nil
}

// Stop stops all jobs and waits for in-flight ticks to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

// run is a single job's ticker loop
func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.wg.Done()

	logger := log.WithJob(job.Name)
	logger.Debug().Dur("interval", job.Interval).Msg("job started")

	tick := func() {
		now := time.Now().UTC()
		if err := job.Fn(ctx, now); err != nil {
			logger.Error().Err(err).Msg("job tick failed")
		}
	}

	if job.RunOnStart {
		tick()
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-s.stopCh:
			logger.Debug().Msg("job stopped")
			return
		case <-ctx.Done():
			logger.Debug().Msg("job context cancelled")
			return
		}
	}
}
