// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Engine is the slice of the sync engine the scheduler drives.
type Engine interface {
	SyncAccount(ctx context.Context, account string) (bool, string, int)
}

// SyncLogReader looks up the last recorded sync attempt for the guard.
type SyncLogReader interface {
	LastSyncStartedAt(ctx context.Context, account string) (time.Time, bool, error)
}

// Options configures the scheduler loop. Zero values fall back to the
// defaults used by the service.
type Options struct {
	// Interval between sync passes.
	Interval time.Duration
	// MinGap skips a cycle when the last recorded pass started less than
	// this long ago, so manual and scheduled triggers don't thrash.
	MinGap time.Duration
	// Cooldown is the pause after a failed cycle before the loop resumes.
	Cooldown time.Duration
	// Now is the clock, injectable for tests.
	Now func() time.Time
}

const (
	defaultInterval = 6 * time.Hour
	defaultMinGap   = time.Hour
	defaultCooldown = 5 * time.Minute
)

// Scheduler triggers sync passes for one account at a fixed interval. A
// single failed cycle never terminates the loop.
type Scheduler struct {
	engine   Engine
	logs     SyncLogReader
	account  string
	interval time.Duration
	minGap   time.Duration
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger
	done     chan struct{}
	cancel   context.CancelFunc
}

// New creates a Scheduler for the account.
func New(engine Engine, logs SyncLogReader, account string, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MinGap <= 0 {
		opts.MinGap = defaultMinGap
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		engine:   engine,
		logs:     logs,
		account:  account,
		interval: opts.Interval,
		minGap:   opts.MinGap,
		cooldown: opts.Cooldown,
		now:      opts.Now,
		logger:   logger,
	}
}

// Start launches the background loop: one cycle immediately, then one per
// interval until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("Scheduler started", "account", s.account, "interval", s.interval.String())
}

// Stop cancels the loop and waits for it to exit. An in-flight sync pass is
// allowed to finish; the wait gives up after the timeout.
func (s *Scheduler) Stop(timeout time.Duration) {
	if s.cancel == nil {
		return
	}
	s.cancel()

	select {
	case <-s.done:
		s.logger.Info("Scheduler stopped")
	case <-time.After(timeout):
		s.logger.Warn("Scheduler did not stop within timeout", "timeout", timeout.String())
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		delay := s.interval
		if err := s.runCycle(ctx); err != nil {
			s.logger.Error("Sync cycle failed", "error", err)
			delay = s.cooldown
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler shutting down", "reason", ctx.Err())
			return
		case <-time.After(delay):
		}
	}
}

// runCycle performs one guarded sync pass. The returned error only reflects
// infrastructure failure around the pass; the pass outcome itself is
// recorded in the sync log.
func (s *Scheduler) runCycle(ctx context.Context) error {
	startedAt, found, err := s.logs.LastSyncStartedAt(ctx, s.account)
	if err != nil {
		return err
	}
	if found {
		if since := s.now().Sub(startedAt); since < s.minGap {
			s.logger.Info("Skipping sync cycle, last pass too recent",
				"account", s.account, "since", since.Round(time.Second).String())
			return nil
		}
	}

	// The pass itself runs detached from the loop context: Stop lets an
	// in-flight pass finish and bounds the wait instead of aborting it.
	ok, message, synced := s.engine.SyncAccount(context.WithoutCancel(ctx), s.account)
	if ok {
		s.logger.Info("Scheduled sync completed", "account", s.account, "repositories", synced)
	} else {
		s.logger.Error("Scheduled sync failed", "account", s.account, "message", message)
	}
	return nil
}
