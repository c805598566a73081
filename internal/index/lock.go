package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// LockFile is the name of the build lock inside the index directory.
const LockFile = ".build.lock"

// BuildLock is a cross-process lock that keeps two builds from writing the
// same index directory at once.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates a lock for the index directory dir.
func NewBuildLock(dir string) *BuildLock {
	lockPath := filepath.Join(dir, LockFile)
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. When another process holds
// it, TryLock fails with ERR_105_BUILD_LOCKED.
func (l *BuildLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return amanerrors.New(amanerrors.ErrCodeBuildLocked, "another build is running", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other build to finish, then retry")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked BuildLock.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
