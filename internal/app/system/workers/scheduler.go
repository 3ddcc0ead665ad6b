// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/system/tasks"
	"go.uber.org/zap"
)

const defaultJobTimeout = 30 * time.Second

// Scheduler runs each job on its own ticker until stopped.
type Scheduler struct {
	jobs   []tasks.Job
	log    *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler creates a scheduler for jobs. Jobs with a non-positive
// interval are skipped at Start.
func NewScheduler(logger *zap.Logger, jobs ...tasks.Job) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins one background loop per job.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.log.Info("background job disabled", zap.String("job", job.Name))
			continue
		}
		s.wg.Add(1)
		go s.run(job)
		s.log.Info("background job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals every loop to stop and waits for running jobs to finish.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.log.Info("background jobs stopped")
	})
}

func (s *Scheduler) run(job tasks.Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(job)
		}
	}
}

// RunOnce executes job immediately under its timeout, logging failures.
func (s *Scheduler) RunOnce(job tasks.Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("background job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.log.Debug("background job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}
