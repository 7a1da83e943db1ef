package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// InMemoryLock is a process-local lease lock with the same semantics as
// RedisLock. It does not coordinate across processes.
type InMemoryLock struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewInMemoryLock creates a new in-memory lock
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// TryLock acquires key unless an unexpired lease holds it
func (l *InMemoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, held := l.leases[key]; held && now.Before(current.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key if token still owns it
func (l *InMemoryLock) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, held := l.leases[key]
	if !held || current.token != token {
		return ErrLockNotHeld
	}
	delete(l.leases, key)
	return nil
}

// Close releases nothing; it matches RedisLock
func (l *InMemoryLock) Close() error {
	return nil
}
