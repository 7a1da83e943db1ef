package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTicker struct {
	mu      sync.Mutex
	calls   []time.Time
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeTicker) Tick(ctx context.Context, now time.Time) (*appledger.TickResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &appledger.TickResult{
		RunAt:     now,
		Processed: 1,
		Materialized: []appledger.MaterializedEntry{
			{DefinitionID: uuid.New(), EntryID: uuid.New(), OccurrenceDate: now, Status: "pre_entry"},
		},
	}, nil
}

func (f *fakeTicker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []TickOutcome
	counts   []int
}

func (o *recordingObserver) ObserveTick(outcome TickOutcome, _ time.Duration, materialized int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	o.counts = append(o.counts, materialized)
}

func (o *recordingObserver) snapshot() []TickOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]TickOutcome(nil), o.outcomes...)
}

type failingLocker struct{}

func (failingLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (failingLocker) Unlock(context.Context, string, string) error { return nil }

var fixedNow = time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)

func testConfig() TickSchedulerConfig {
	return TickSchedulerConfig{
		Enabled:  true,
		Interval: 20 * time.Millisecond,
		Timeout:  time.Second,
		LockTTL:  2 * time.Second,
	}
}

func newTestScheduler(t *testing.T, ticker Ticker, locker Locker, cfg TickSchedulerConfig, observer TickObserver) *TickScheduler {
	t.Helper()
	s, err := NewTickScheduler(ticker, locker, cfg, zap.NewNop(),
		WithObserver(observer),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return s
}

func TestTickSchedulerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TickSchedulerConfig)
	}{
		{"zero interval", func(c *TickSchedulerConfig) { c.Interval = 0 }},
		{"zero timeout", func(c *TickSchedulerConfig) { c.Timeout = 0 }},
		{"lock ttl equal to timeout", func(c *TickSchedulerConfig) { c.LockTTL = c.Timeout }},
	}

	require.NoError(t, DefaultTickSchedulerConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTickSchedulerConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			_, err := NewTickScheduler(&fakeTicker{}, cache.NewInMemoryLock(), cfg, zap.NewNop())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestTickScheduler_TriggerImmediate(t *testing.T) {
	t.Run("runs with the scheduler clock and releases the lock", func(t *testing.T) {
		ticker := &fakeTicker{}
		lock := cache.NewInMemoryLock()
		observer := &recordingObserver{}
		s := newTestScheduler(t, ticker, lock, testConfig(), observer)

		result, err := s.TriggerImmediate(context.Background(), time.Time{})
		require.NoError(t, err)
		assert.Len(t, result.Materialized, 1)
		assert.Equal(t, []time.Time{fixedNow}, ticker.calls)
		assert.Equal(t, []TickOutcome{TickOutcomeCompleted}, observer.snapshot())
		assert.Equal(t, []int{1}, observer.counts)

		_, ok, err := lock.TryLock(context.Background(), TickLockKey, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "lock must be released after the run")
	})

	t.Run("explicit as-of date is passed through", func(t *testing.T) {
		ticker := &fakeTicker{}
		s := newTestScheduler(t, ticker, cache.NewInMemoryLock(), testConfig(), &recordingObserver{})

		asOf := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		_, err := s.TriggerImmediate(context.Background(), asOf)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{asOf}, ticker.calls)
	})

	t.Run("held lock skips the run", func(t *testing.T) {
		ticker := &fakeTicker{}
		lock := cache.NewInMemoryLock()
		observer := &recordingObserver{}
		s := newTestScheduler(t, ticker, lock, testConfig(), observer)

		_, ok, err := lock.TryLock(context.Background(), TickLockKey, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = s.TriggerImmediate(context.Background(), time.Time{})
		assert.ErrorIs(t, err, ErrTickInProgress)
		assert.Zero(t, ticker.callCount())
		assert.Equal(t, []TickOutcome{TickOutcomeSkipped}, observer.snapshot())
	})

	t.Run("ticker error is reported and the lock released", func(t *testing.T) {
		ticker := &fakeTicker{err: errors.New("database unavailable")}
		lock := cache.NewInMemoryLock()
		observer := &recordingObserver{}
		s := newTestScheduler(t, ticker, lock, testConfig(), observer)

		_, err := s.TriggerImmediate(context.Background(), time.Time{})
		assert.EqualError(t, err, "database unavailable")
		assert.Equal(t, []TickOutcome{TickOutcomeFailed}, observer.snapshot())

		_, ok, _ := lock.TryLock(context.Background(), TickLockKey, time.Second)
		assert.True(t, ok)
	})

	t.Run("lock error fails the run", func(t *testing.T) {
		ticker := &fakeTicker{}
		observer := &recordingObserver{}
		s := newTestScheduler(t, ticker, failingLocker{}, testConfig(), observer)

		_, err := s.TriggerImmediate(context.Background(), time.Time{})
		assert.ErrorContains(t, err, "acquire tick lock")
		assert.Zero(t, ticker.callCount())
		assert.Equal(t, []TickOutcome{TickOutcomeFailed}, observer.snapshot())
	})
}

func TestTickScheduler_ConcurrentTriggersRunOnce(t *testing.T) {
	ticker := &fakeTicker{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestScheduler(t, ticker, cache.NewInMemoryLock(), testConfig(), &recordingObserver{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.TriggerImmediate(context.Background(), time.Time{})
		firstDone <- err
	}()
	<-ticker.entered

	_, err := s.TriggerImmediate(context.Background(), time.Time{})
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(ticker.block)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, ticker.callCount())
}

func TestTickScheduler_StartStop(t *testing.T) {
	ticker := &fakeTicker{}
	cfg := testConfig()
	cfg.RunOnStart = true
	s := newTestScheduler(t, ticker, cache.NewInMemoryLock(), cfg, &recordingObserver{})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return ticker.callCount() >= 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx), "stopping twice is a no-op")
}

func TestTickScheduler_Disabled(t *testing.T) {
	ticker := &fakeTicker{}
	cfg := testConfig()
	cfg.Enabled = false
	s := newTestScheduler(t, ticker, cache.NewInMemoryLock(), cfg, &recordingObserver{})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Zero(t, ticker.callCount())
}
