package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another local process holds the lock.
var ErrAlreadyRunning = errors.New("another autopilot instance is running")

// Instance is a held single-instance lock.
type Instance struct {
	fl *flock.Flock
}

// Acquire takes a non-blocking exclusive lock on path, creating its directory.
func Acquire(path string) (*Instance, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrAlreadyRunning)
	}
	return &Instance{fl: fl}, nil
}

// Path returns the lock file path.
func (i *Instance) Path() string {
	return i.fl.Path()
}

// Release drops the lock. The lock file is left in place.
func (i *Instance) Release() error {
	return i.fl.Unlock()
}
