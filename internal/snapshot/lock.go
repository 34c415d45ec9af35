package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a shared lock is retried while the offline
// builder holds the exclusive lock.
const lockRetryDelay = 50 * time.Millisecond

// dirLock is the cross-process lock on a snapshot directory. Readers take it
// shared; the offline builder takes it exclusive while rewriting files.
type dirLock struct {
	flock  *flock.Flock
	locked bool
}

func newDirLock(dir string) *dirLock {
	return &dirLock{flock: flock.New(filepath.Join(dir, LockFile))}
}

// RLock acquires a shared lock, retrying until ctx is done.
func (l *dirLock) RLock(ctx context.Context) error {
	ok, err := l.flock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire shared lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("shared lock not acquired")
	}
	l.locked = true
	return nil
}

// Lock acquires an exclusive lock, retrying until ctx is done.
func (l *dirLock) Lock(ctx context.Context) error {
	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire exclusive lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("exclusive lock not acquired")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *dirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
