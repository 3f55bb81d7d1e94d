// Package lock serializes import jobs per account. Two jobs for the same
// account must never run concurrently because the dedup resolver's existence
// checks would race against the other job's uncommitted inserts; jobs for
// different accounts run freely in parallel.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotObtained is returned when the account lock could not be acquired
// within the wait timeout.
var ErrNotObtained = errors.New("account lock not obtained")

// AccountLock is a held advisory lock for one account
type AccountLock interface {
	// Refresh extends the lock's TTL; long jobs call this between batches
	Refresh(ctx context.Context, ttl time.Duration) error
	// Release releases the lock
	Release(ctx context.Context) error
}

// AccountLocker acquires per-account advisory locks
type AccountLocker interface {
	// Acquire obtains the lock for accountID, waiting up to wait before
	// giving up with ErrNotObtained.
	Acquire(ctx context.Context, accountID uuid.UUID, ttl, wait time.Duration) (AccountLock, error)
}
