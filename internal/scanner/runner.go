package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajharbinger/dealflowos/internal/logger"
)

// Sweeper performs one sweep
type Sweeper interface {
	Sweep(ctx context.Context) SweepResult
}

// Locker provides a cross-instance lock around a sweep.
// TryLock returns acquired=false without error when another instance holds the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), acquired bool, err error)
}

// Runner drives a Sweeper on a ticker and never runs two sweeps at once
type Runner struct {
	sweeper  Sweeper
	locker   Locker
	health   *HealthMonitor
	logger   logger.Logger
	interval time.Duration

	inFlight atomic.Bool
	skipped  atomic.Int64

	resultMu   sync.RWMutex
	lastResult *SweepResult

	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLocker adds a cross-instance lock
func WithLocker(l Locker) RunnerOption {
	return func(r *Runner) { r.locker = l }
}

// WithHealthMonitor records every sweep outcome in h
func WithHealthMonitor(h *HealthMonitor) RunnerOption {
	return func(r *Runner) { r.health = h }
}

// WithLogger sets the runner logger
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner ticking every interval
func NewRunner(sweeper Sweeper, interval time.Duration, opts ...RunnerOption) *Runner {
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	r := &Runner{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the ticker loop and runs a sweep immediately
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("scanner is already running")
	}

	r.isRunning = true
	r.stopChan = make(chan struct{})

	r.wg.Add(1)
	go r.loop(ctx, r.stopChan)

	r.logger.Info("Scanner started", "interval", r.interval.String())
	return nil
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return fmt.Errorf("scanner is not running")
	}

	close(r.stopChan)
	r.wg.Wait()
	r.isRunning = false

	r.logger.Info("Scanner stopped")
	return nil
}

// IsRunning returns whether the loop has been started and not stopped
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

// RunOnce executes a sweep now, unless one is already in flight
func (r *Runner) RunOnce(ctx context.Context) SweepResult {
	return r.tick(ctx)
}

// Skipped returns how many ticks were skipped
func (r *Runner) Skipped() int64 {
	return r.skipped.Load()
}

// LastResult returns the most recent completed sweep, if any
func (r *Runner) LastResult() *SweepResult {
	r.resultMu.RLock()
	defer r.resultMu.RUnlock()
	if r.lastResult == nil {
		return nil
	}
	res := *r.lastResult
	return &res
}

func (r *Runner) loop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// in-flight sweeps finish even when ctx is cancelled
	sweepCtx := context.WithoutCancel(ctx)

	r.tick(sweepCtx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			r.logger.Info("Scanner context cancelled")
			return
		case <-ticker.C:
			r.tick(sweepCtx)
		}
	}
}

func (r *Runner) skip(reason string) SweepResult {
	r.skipped.Add(1)
	if r.health != nil {
		r.health.RecordSkip()
	}
	r.logger.Debug("Scanner tick skipped", "reason", reason)
	return SweepResult{Skipped: true, SkipReason: reason}
}

func (r *Runner) tick(ctx context.Context) SweepResult {
	if !r.inFlight.CompareAndSwap(false, true) {
		return r.skip("sweep already in flight")
	}
	defer r.inFlight.Store(false)

	if r.locker != nil {
		unlock, acquired, err := r.locker.TryLock(ctx)
		if err != nil {
			r.logger.Warn("Scanner lock unavailable", "error", err.Error())
			return r.skip("lock backend error")
		}
		if !acquired {
			return r.skip("lock held by another instance")
		}
		defer unlock()
	}

	result := r.sweeper.Sweep(ctx)

	r.resultMu.Lock()
	r.lastResult = &result
	r.resultMu.Unlock()

	if r.health != nil {
		r.health.RecordSweep(result)
	}
	if result.OK() {
		r.logger.Info("Scanner sweep completed", "summary", result.Summary())
	} else {
		r.logger.Warn("Scanner sweep completed with errors", "summary", result.Summary(),
			"reminder_error", result.ReminderError, "event_error", result.EventError)
	}
	return result
}
