// Package lock keeps two pipeline runs from racing on the same warehouse.
package lock

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"salesdw/internal/common"
	"salesdw/pkg/errors"
)

// Lock is an exclusive advisory file lock.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire takes the lock at path without blocking. A lock held by another
// process is reported as ErrCodeLockHeld.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionSecure); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create lock directory").
			WithContext("path", path)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to acquire run lock").
			WithContext("path", path)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeLockHeld, "Another salesdw run holds the lock").
			WithContext("path", path).
			WithContext("holder", holder(path)).
			WithSuggestions(
				"Wait for the other run to finish",
				"Remove the lock file only if no salesdw process is running",
			)
	}

	// Best effort: record who holds the lock for the message above.
	_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), common.FilePermissionSecure)
	return &Lock{path: path, flock: fl}, nil
}

// Path is the lock file.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to release run lock").
			WithContext("path", l.path)
	}
	return nil
}

func holder(path string) string {
	data, err := os.ReadFile(path) // #nosec G304 - lock path comes from config
	if err != nil || len(data) == 0 {
		return "unknown"
	}
	return "pid " + string(data)
}
