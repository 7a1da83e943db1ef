package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Lock is the lease lock contract shared by RedisLock and InMemoryLock
type Lock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

// LockFactory creates locks based on configuration
type LockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockFactoryOption is a functional option for configuring the factory
type LockFactoryOption func(*LockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockFactoryOption {
	return func(f *LockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// an in-memory lock. Default is false.
func WithInMemoryFallback(allow bool) LockFactoryOption {
	return func(f *LockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockFactory creates a new factory
func NewLockFactory(cfg config.RedisConfig, opts ...LockFactoryOption) *LockFactory {
	f := &LockFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLock returns a Redis lock when Redis is enabled, otherwise an in-memory one
func (f *LockFactory) CreateLock(ctx context.Context) (Lock, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory tick lock")
		return NewInMemoryLock(), nil
	}

	client, err := NewRedisClient(ctx, RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis tick lock", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisLock(client, "ledger:"), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for the tick lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory tick lock. "+
		"Several instances may tick concurrently.",
		zap.Error(err),
	)
	return NewInMemoryLock(), nil
}
