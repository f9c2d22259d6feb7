package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rentikpro/workspace-sync/internal/debug"
)

const (
	rootLockFileName   = ".rentikprosync.lock"
	rootLockPollPeriod = 50 * time.Millisecond
)

// ErrWorkspaceBusy is returned when a root's advisory lock is already held
// by another process. It is defense-in-depth only: the sync engine's own
// correctness never depends on this lock being held.
var ErrWorkspaceBusy = errors.New("workspace busy")

// RootLock guards a workspace root against concurrent mutating operations
// from more than one process. It does not protect against concurrent
// operations within this process; callers rely on the Facade's
// singleflight dedup for that.
type RootLock struct {
	flock *flock.Flock
}

// NewRootLock builds a lock for the given workspace root.
func NewRootLock(root string) *RootLock {
	return &RootLock{flock: flock.New(filepath.Join(root, rootLockFileName))}
}

// Acquire blocks, polling, until the lock is obtained or ctx is done.
func (l *RootLock) Acquire(ctx context.Context) error {
	for {
		locked, err := l.flock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire workspace lock: %w", err)
		}
		if locked {
			debug.Logf("acquired workspace lock: %s", l.flock.Path())
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrWorkspaceBusy, l.flock.Path())
		case <-time.After(rootLockPollPeriod):
		}
	}
}

// Release is idempotent and never returns an error to the caller; a failed
// unlock is logged but must not fail the operation that already completed.
func (l *RootLock) Release() {
	if l.flock == nil {
		return
	}
	debug.Logf("releasing workspace lock: %s", l.flock.Path())
	if err := l.flock.Unlock(); err != nil {
		debug.Logf("release workspace lock failed: %v", err)
	}
}

// WithRootLock runs fn while holding root's advisory lock, releasing it
// unconditionally afterward.
func WithRootLock(ctx context.Context, root string, fn func() error) error {
	l := NewRootLock(root)
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
