//go:build unix

package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// FileLocker uses flock(2) on <dir>/<key>.lock. The kernel drops the lock
// when the process exits, so a crashed invocation never leaves it stale.
type FileLocker struct {
	Dir string
}

// NewFileLocker creates a flock-based locker rooted at dir
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{Dir: dir}
}

// Acquire implements Locker
func (l *FileLocker) Acquire(_ context.Context, key string) (func() error, error) {
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(l.Dir, sanitize(key)+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", key, ErrLocked)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// holder pid, informational only
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		closeErr := f.Close()
		return errors.Join(unlockErr, closeErr)
	}, nil
}

func sanitize(key string) string {
	return strings.NewReplacer("/", "_", "..", "_").Replace(key)
}
