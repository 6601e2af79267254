package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// Lock acquisition parameters. A holder that keeps the lock past
// lockStaleAfter without heartbeating is presumed dead or wedged and its
// lock file is removed so a live process can take over.
const (
	lockRetries    = 5
	lockBackoffMin = 100 * time.Millisecond
	lockBackoffMax = time.Second
	lockStaleAfter = 10 * time.Second
)

// ErrLockHeld is returned when the advisory lock could not be acquired
// after all retries. The caller's in-memory state is untouched and the
// operation may be retried.
var ErrLockHeld = errors.New("lock held by another process")

// acquire takes an exclusive advisory lock on lockPath, retrying with
// exponential backoff. Returns a release func that must be called exactly
// once; release failures are logged, not returned.
func (s *Store) acquire(lockPath string) (func(), error) {
	backoff := lockBackoffMin
	for attempt := 0; attempt < lockRetries; attempt++ {
		if attempt > 0 {
			s.stealIfStale(lockPath)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > lockBackoffMax {
				backoff = lockBackoffMax
			}
		}

		fl := flock.New(lockPath)
		ok, err := fl.TryLock()
		if err != nil {
			// Treat open/lock errors as contention and retry.
			s.log.Warn("locking %s: %v", lockPath, err)
			continue
		}
		if !ok {
			continue
		}

		// Heartbeat so other processes can tell this holder is live.
		now := time.Now()
		_ = os.Chtimes(lockPath, now, now)

		return func() {
			if err := fl.Unlock(); err != nil {
				s.log.Warn("releasing %s: %v", lockPath, err)
			}
		}, nil
	}
	return nil, fmt.Errorf("acquiring %s after %d attempts: %w", lockPath, lockRetries, ErrLockHeld)
}

// stealIfStale removes a lock file whose heartbeat is older than
// lockStaleAfter. The previous holder, if somehow still alive, keeps its
// descriptor to the unlinked inode; new acquirers lock a fresh file.
func (s *Store) stealIfStale(lockPath string) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) <= lockStaleAfter {
		return
	}
	if err := os.Remove(lockPath); err == nil {
		s.log.Warn("removed stale lock %s (idle > %s)", lockPath, lockStaleAfter)
	}
}
