// Package filelock implements a directory-scoped advisory lock backed by a
// sentinel ".lock" file. Every read-modify-write of a metadata.json listing
// (and the <cid>.json written alongside a new file entry) happens under this
// lock, so two concurrent ingests never interleave such a cycle. Plain
// reads, such as listing a directory or loading a block map, do not take it.
package filelock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/canmi21/rfs/pkg/rfserrors"
	"go.uber.org/zap"
)

// pollInterval is how often Acquire checks whether a held lock has been
// released. Fixed for predictable behavior across pools.
const pollInterval = 100 * time.Millisecond

// Lock is a held advisory lock on a directory. Release must be called
// exactly once to remove the sentinel file.
type Lock struct {
	path string
	log  *zap.SugaredLogger
}

// Acquire creates the sentinel file "<target>.lock" in the same directory
// as target, blocking and polling every 100ms while it already exists. It
// waits indefinitely unless ctx is canceled, in which case it returns
// ctx.Err().
func Acquire(ctx context.Context, log *zap.SugaredLogger, target string) (*Lock, error) {
	lockPath := target + ".lock"

	waited := false
	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			_ = file.Close()
			if waited {
				log.Debugw("acquired lock", "path", lockPath)
			}
			return &Lock{path: lockPath, log: log}, nil
		}
		if !os.IsExist(err) {
			return nil, rfserrors.ClassifyIOError(err, lockPath)
		}

		if !waited {
			log.Debugw("waiting for lock", "path", lockPath)
			waited = true
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release removes the sentinel file, freeing the lock for the next waiter.
// It is safe to call at most once; a second call returns an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("filelock: release %s: %w", l.path, err)
	}
	l.log.Debugw("released lock", "path", l.path)
	return nil
}
