package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAccountLocker implements AccountLocker for single-process deployments
// and tests. Locks never expire; TTL and Refresh are accepted but ignored.
type MemoryAccountLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

// NewMemoryAccountLocker creates an in-memory account locker
func NewMemoryAccountLocker() *MemoryAccountLocker {
	return &MemoryAccountLocker{held: make(map[uuid.UUID]bool)}
}

// Acquire obtains the account lock, polling until wait elapses
func (l *MemoryAccountLocker) Acquire(ctx context.Context, accountID uuid.UUID, ttl, wait time.Duration) (AccountLock, error) {
	deadline := time.Now().Add(wait)
	for {
		if l.tryAcquire(accountID) {
			return &memoryAccountLock{locker: l, accountID: accountID}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotObtained
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (l *MemoryAccountLocker) tryAcquire(accountID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[accountID] {
		return false
	}
	l.held[accountID] = true
	return true
}

func (l *MemoryAccountLocker) release(accountID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, accountID)
}

type memoryAccountLock struct {
	locker    *MemoryAccountLocker
	accountID uuid.UUID
	once      sync.Once
}

func (l *memoryAccountLock) Refresh(ctx context.Context, ttl time.Duration) error {
	return nil
}

func (l *memoryAccountLock) Release(ctx context.Context) error {
	l.once.Do(func() { l.locker.release(l.accountID) })
	return nil
}

var _ AccountLocker = (*MemoryAccountLocker)(nil)
