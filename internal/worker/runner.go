// Package worker archives completed assessments in the background so the
// HTTP response never waits on the database or the mail provider. The
// assessment service holds a worker.Enqueuer and calls Enqueue; it never
// touches the concrete Runner.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nyashahama/carefund-backend/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when the buffer is saturated.
var ErrQueueFull = errors.New("worker: queue is full")

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface callers use to hand off archive work.
// In tests, any struct with an Enqueue method satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Task) error
}

// Runnable is implemented by *Job. Tests substitute a stub.
type Runnable interface {
	Run(ctx context.Context, t Task) error
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig().
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 3.
	Workers int

	// JobTimeout is the per-attempt context deadline. Default: 30s.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts before a task is dropped.
	// Default: 3.
	MaxRetries int

	// BaseBackoff is the unit of the exponential back-off between attempts:
	// BaseBackoff<<attempt. Default: 1s.
	BaseBackoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:     3,
		JobTimeout:  30 * time.Second,
		MaxRetries:  3,
		BaseBackoff: time.Second,
	}
}

// Runner manages a pool of worker goroutines fed by an in-process channel.
type Runner struct {
	job    Runnable
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan Task
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job Runnable, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}

	return &Runner{
		job:    job,
		cfg:    cfg,
		logger: logger,
		// Buffer = Workers*2 so Enqueue never blocks under normal load.
		queue: make(chan Task, cfg.Workers*2),
	}
}

// Enqueue pushes a task onto the channel without blocking. A full queue
// returns ErrQueueFull and the task is dropped.
func (r *Runner) Enqueue(_ context.Context, t Task) error {
	select {
	case r.queue <- t:
		r.logger.Debug("worker: enqueued assessment", "assessment_id", t.Record.ID)
		return nil
	default:
		metrics.ArchiveJobsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Start launches the worker pool. It blocks until ctx is cancelled and every
// worker has drained what was already queued. Call it in a goroutine:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			r.drain(log)
			return
		case t := <-r.queue:
			r.runWithRetry(ctx, t, log)
		}
	}
}

// drain runs whatever is still buffered once, on a fresh deadline, so an
// accepted assessment is not lost on shutdown.
func (r *Runner) drain(log *slog.Logger) {
	for {
		select {
		case t := <-r.queue:
			r.record(t, r.runDetached(t), log)
		default:
			return
		}
	}
}

// runWithRetry executes the job up to MaxRetries times.
func (r *Runner) runWithRetry(ctx context.Context, t Task, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, t)
		cancel()

		if lastErr == nil {
			break
		}

		log.Warn("worker: job attempt failed",
			"assessment_id", t.Record.ID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2, 4, 8 … units.
			backoff := r.cfg.BaseBackoff << attempt
			select {
			case <-ctx.Done():
				// Shutdown during back-off: one last try instead of dropping it.
				r.record(t, r.runDetached(t), log)
				return
			case <-time.After(backoff):
			}
		}
	}

	r.record(t, lastErr, log)
}

// runDetached runs t once on a fresh deadline that ignores shutdown.
func (r *Runner) runDetached(t Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JobTimeout)
	defer cancel()
	return r.job.Run(ctx, t)
}

func (r *Runner) record(t Task, err error, log *slog.Logger) {
	if err != nil {
		metrics.ArchiveJobsTotal.WithLabelValues("failed").Inc()
		log.Error("worker: assessment not archived", "assessment_id", t.Record.ID, "error", err)
		return
	}
	metrics.ArchiveJobsTotal.WithLabelValues("saved").Inc()
}
