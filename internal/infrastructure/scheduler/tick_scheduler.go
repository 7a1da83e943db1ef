package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"go.uber.org/zap"
)

// TickLockKey is the lock shared by every process that runs the recurrence tick
const TickLockKey = "ledger:recurrence:tick"

var (
	// ErrTickInProgress means another process holds the tick lock
	ErrTickInProgress = errors.New("recurrence tick already in progress")
	ErrInvalidConfig  = errors.New("invalid tick scheduler config")
)

// Ticker materializes due recurring occurrences
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (*appledger.TickResult, error)
}

// Locker grants a mutually exclusive lease on a key until it is released or
// its TTL elapses. TryLock returns ok=false, without error, when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TickOutcome classifies a scheduled run for observers
type TickOutcome = string

const (
	TickOutcomeCompleted TickOutcome = "completed"
	TickOutcomeSkipped   TickOutcome = "skipped"
	TickOutcomeFailed    TickOutcome = "failed"
)

// TickObserver is notified after every run attempt
type TickObserver interface {
	ObserveTick(outcome TickOutcome, duration time.Duration, materialized int)
}

// TickSchedulerConfig holds configuration for the recurrence tick scheduler
type TickSchedulerConfig struct {
	Enabled bool

	// Interval between runs
	Interval time.Duration

	// Timeout bounds one run
	Timeout time.Duration

	// LockTTL must outlive Timeout so a slow run keeps its lease
	LockTTL time.Duration

	// RunOnStart runs once immediately after Start
	RunOnStart bool
}

// DefaultTickSchedulerConfig returns default configuration
func DefaultTickSchedulerConfig() TickSchedulerConfig {
	return TickSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		Timeout:    5 * time.Minute,
		LockTTL:    6 * time.Minute,
		RunOnStart: true,
	}
}

// Validate checks the configuration
func (c TickSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.LockTTL <= c.Timeout {
		return fmt.Errorf("%w: lock ttl must exceed timeout", ErrInvalidConfig)
	}
	return nil
}

// TickScheduler runs the recurrence tick periodically. Every run, scheduled
// or triggered, holds the tick lock, so at most one tick executes across all
// processes sharing the Locker.
type TickScheduler struct {
	ticker   Ticker
	locker   Locker
	observer TickObserver
	config   TickSchedulerConfig
	logger   *zap.Logger
	clock    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// TickSchedulerOption configures optional collaborators
type TickSchedulerOption func(*TickScheduler)

// WithObserver reports run outcomes to o
func WithObserver(o TickObserver) TickSchedulerOption {
	return func(s *TickScheduler) {
		s.observer = o
	}
}

// WithClock overrides the time source passed to the ticker
func WithClock(clock func() time.Time) TickSchedulerOption {
	return func(s *TickScheduler) {
		s.clock = clock
	}
}

// NewTickScheduler creates a new tick scheduler
func NewTickScheduler(ticker Ticker, locker Locker, config TickSchedulerConfig, logger *zap.Logger, opts ...TickSchedulerOption) (*TickScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &TickScheduler{
		ticker: ticker,
		locker: locker,
		config: config,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start starts the periodic loop. It is a no-op when disabled or already running.
func (s *TickScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Recurrence tick scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Recurrence tick scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("timeout", s.config.Timeout),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight run until ctx expires
func (s *TickScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Recurrence tick scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the periodic loop is active
func (s *TickScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *TickScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runScheduled(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *TickScheduler) runScheduled(ctx context.Context) {
	_, err := s.TriggerImmediate(ctx, time.Time{})
	switch {
	case err == nil:
	case errors.Is(err, ErrTickInProgress):
		s.logger.Debug("Recurrence tick skipped, lock held elsewhere")
	case ctx.Err() != nil:
	default:
		s.logger.Error("Recurrence tick failed", zap.Error(err))
	}
}

// TriggerImmediate runs one tick as of now (the scheduler clock when zero)
// under the tick lock. It returns ErrTickInProgress when the lock is held.
func (s *TickScheduler) TriggerImmediate(ctx context.Context, now time.Time) (*appledger.TickResult, error) {
	start := time.Now()
	if now.IsZero() {
		now = s.clock()
	}

	token, ok, err := s.locker.TryLock(ctx, TickLockKey, s.config.LockTTL)
	if err != nil {
		s.observe(TickOutcomeFailed, start, 0)
		return nil, fmt.Errorf("acquire tick lock: %w", err)
	}
	if !ok {
		s.observe(TickOutcomeSkipped, start, 0)
		return nil, ErrTickInProgress
	}
	defer func() {
		// The run context may already be canceled; release on a fresh one.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Unlock(unlockCtx, TickLockKey, token); err != nil {
			s.logger.Warn("Failed to release tick lock", zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	result, err := s.ticker.Tick(runCtx, now)
	if err != nil {
		s.observe(TickOutcomeFailed, start, 0)
		return nil, err
	}

	s.observe(TickOutcomeCompleted, start, len(result.Materialized))
	s.logger.Debug("Recurrence tick finished",
		zap.Time("as_of", now),
		zap.Int("definitions", result.Processed),
		zap.Int("materialized", len(result.Materialized)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *TickScheduler) observe(outcome TickOutcome, start time.Time, materialized int) {
	if s.observer != nil {
		s.observer.ObserveTick(outcome, time.Since(start), materialized)
	}
}
