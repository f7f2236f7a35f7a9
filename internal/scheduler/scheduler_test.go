// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	calls  atomic.Int32
	onSync func(ctx context.Context)
}

func (f *fakeEngine) SyncAccount(ctx context.Context, account string) (bool, string, int) {
	f.calls.Add(1)
	if f.onSync != nil {
		f.onSync(ctx)
	}
	return true, "ok", 3
}

type fakeLogReader struct {
	mu        sync.Mutex
	calls     int
	startedAt time.Time
	found     bool
	err       error
}

func (f *fakeLogReader) LastSyncStartedAt(ctx context.Context, account string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.startedAt, f.found, f.err
}

func (f *fakeLogReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLogReader) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestScheduler_RecencyGuard(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("skips when the last pass started 30 minutes ago", func(t *testing.T) {
		engine := &fakeEngine{}
		logs := &fakeLogReader{startedAt: now.Add(-30 * time.Minute), found: true}
		s := New(engine, logs, "octocat", Options{Now: clock}, testLogger())

		require.NoError(t, s.runCycle(context.Background()))
		assert.Equal(t, int32(0), engine.calls.Load())
	})

	t.Run("proceeds when the last pass started 90 minutes ago", func(t *testing.T) {
		engine := &fakeEngine{}
		logs := &fakeLogReader{startedAt: now.Add(-90 * time.Minute), found: true}
		s := New(engine, logs, "octocat", Options{Now: clock}, testLogger())

		require.NoError(t, s.runCycle(context.Background()))
		assert.Equal(t, int32(1), engine.calls.Load())
	})

	t.Run("proceeds when no pass was ever recorded", func(t *testing.T) {
		engine := &fakeEngine{}
		s := New(engine, &fakeLogReader{}, "octocat", Options{Now: clock}, testLogger())

		require.NoError(t, s.runCycle(context.Background()))
		assert.Equal(t, int32(1), engine.calls.Load())
	})

	t.Run("guard honors a custom minimum gap", func(t *testing.T) {
		engine := &fakeEngine{}
		logs := &fakeLogReader{startedAt: now.Add(-30 * time.Minute), found: true}
		s := New(engine, logs, "octocat", Options{MinGap: 10 * time.Minute, Now: clock}, testLogger())

		require.NoError(t, s.runCycle(context.Background()))
		assert.Equal(t, int32(1), engine.calls.Load())
	})

	t.Run("guard lookup failure surfaces as a cycle error", func(t *testing.T) {
		engine := &fakeEngine{}
		logs := &fakeLogReader{err: errors.New("database unavailable")}
		s := New(engine, logs, "octocat", Options{Now: clock}, testLogger())

		assert.Error(t, s.runCycle(context.Background()))
		assert.Equal(t, int32(0), engine.calls.Load())
	})
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	engine := &fakeEngine{}
	s := New(engine, &fakeLogReader{}, "octocat", Options{Interval: time.Hour}, testLogger())

	s.Start(context.Background())
	defer s.Stop(time.Second)

	require.Eventually(t, func() bool {
		return engine.calls.Load() == 1
	}, time.Second, 10*time.Millisecond, "initial cycle should run without waiting for the interval")
}

func TestScheduler_StopInterruptsSleep(t *testing.T) {
	engine := &fakeEngine{}
	s := New(engine, &fakeLogReader{}, "octocat", Options{Interval: time.Hour}, testLogger())

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return engine.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop(5 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not interrupt the interval sleep")
	}
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestScheduler_ShutdownLeavesInFlightPassUncancelled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var cancelled atomic.Bool

	engine := &fakeEngine{}
	engine.onSync = func(ctx context.Context) {
		close(started)
		<-release
		cancelled.Store(ctx.Err() != nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := New(engine, &fakeLogReader{}, "octocat", Options{Interval: time.Hour}, testLogger())
	s.Start(ctx)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("initial cycle never started")
	}

	// Shutdown while the pass is mid-flight: the loop context dies, the
	// pass context must not.
	cancel()
	close(release)
	s.Stop(time.Second)

	assert.False(t, cancelled.Load(), "an in-flight pass must be allowed to finish")
	assert.Equal(t, int32(1), engine.calls.Load())
}

func TestScheduler_FailedCycleUsesCooldown(t *testing.T) {
	engine := &fakeEngine{}
	logs := &fakeLogReader{err: errors.New("transient failure")}
	s := New(engine, logs, "octocat", Options{
		Interval: time.Hour,
		Cooldown: 20 * time.Millisecond,
	}, testLogger())

	s.Start(context.Background())
	defer s.Stop(time.Second)

	// With the hour-long interval, a second guard lookup this quickly can
	// only come from the failure cooldown path.
	require.Eventually(t, func() bool {
		return logs.callCount() >= 2
	}, time.Second, 10*time.Millisecond, "scheduler should retry after the cooldown instead of dying")
	assert.Equal(t, int32(0), engine.calls.Load())
}
