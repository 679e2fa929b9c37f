// Package lockfile guards a work tree against two relm runs at once. Merges
// check out branches in the shared working tree, so a second run would
// corrupt the first.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Name is the lock file created inside the .git directory.
const Name = "relm.lock"

// ErrLocked is matched by *HeldError.
var ErrLocked = errors.New("another relm run holds the lock")

// Info is written into the lock file by the holder.
type Info struct {
	PID       int       `json:"pid"`
	RunID     string    `json:"run_id,omitempty"`
	Command   string    `json:"command,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// HeldError reports the current holder of a busy lock.
type HeldError struct {
	Path   string
	Holder Info
}

func (e *HeldError) Error() string {
	if e.Holder.PID == 0 {
		return fmt.Sprintf("%s: %v", e.Path, ErrLocked)
	}
	return fmt.Sprintf("%s: %v (pid %d, started %s)", e.Path, ErrLocked,
		e.Holder.PID, e.Holder.StartedAt.Format(time.RFC3339))
}

func (e *HeldError) Is(target error) bool { return target == ErrLocked }

// Lock is a held run lock.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes the exclusive lock in dir without waiting. A busy lock
// returns *HeldError.
func Acquire(dir string, info Info) (*Lock, error) {
	path := filepath.Join(dir, Name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600) //nolint:gosec // path is inside .git
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errBusy) {
			holder, _ := ReadInfo(path)
			return nil, &HeldError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	if err := writeInfo(f, info); err != nil {
		_ = flockUnlock(f)
		_ = f.Close()
		return nil, err
	}
	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock and removes the file. It is safe to call twice.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	// Remove while still holding the lock so a waiter never sees a stale file.
	rmErr := os.Remove(l.path)
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	err := errors.Join(rmErr, flockUnlock(l.f), l.f.Close())
	l.f = nil
	return err
}

// ReadInfo reads the holder information from a lock file.
func ReadInfo(path string) (Info, error) {
	var info Info
	data, err := os.ReadFile(path) //nolint:gosec // path is inside .git
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return info, nil
}

func writeInfo(f *os.File, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return f.Sync()
}
