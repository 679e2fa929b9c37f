//go:build unix

package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireWritesInfo(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, Info{RunID: "run-1", Command: "merge"})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer func() { _ = lock.Release() }()

	if lock.Path() != filepath.Join(dir, Name) {
		t.Errorf("Path() = %q", lock.Path())
	}
	info, err := ReadInfo(lock.Path())
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", info.PID, os.Getpid())
	}
	if info.RunID != "run-1" || info.Command != "merge" {
		t.Errorf("info = %+v", info)
	}
	if time.Since(info.StartedAt) > time.Minute {
		t.Errorf("StartedAt = %v", info.StartedAt)
	}
}

func TestAcquireBusy(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, Info{RunID: "first"})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer func() { _ = first.Release() }()

	// flock locks belong to the open file, so a second open in the same
	// process conflicts like another process would.
	_, err = Acquire(dir, Info{RunID: "second"})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire error = %v, want ErrLocked", err)
	}
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("error %T is not *HeldError", err)
	}
	if held.Holder.RunID != "first" || held.Holder.PID != os.Getpid() {
		t.Errorf("holder = %+v", held.Holder)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, Info{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release = %v, want nil", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Name)); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	again, err := Acquire(dir, Info{})
	if err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}
	_ = again.Release()
}

func TestAcquireStaleFile(t *testing.T) {
	dir := t.TempDir()
	// A crashed run leaves the file behind but no lock.
	if err := os.WriteFile(filepath.Join(dir, Name), []byte(`{"pid":1}`), 0600); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(dir, Info{RunID: "fresh"})
	if err != nil {
		t.Fatalf("Acquire over stale file failed: %v", err)
	}
	defer func() { _ = lock.Release() }()

	info, err := ReadInfo(lock.Path())
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.RunID != "fresh" {
		t.Errorf("RunID = %q, want fresh", info.RunID)
	}
}

func TestReadInfoErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadInfo(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad")
	if err := os.WriteFile(bad, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadInfo(bad); err == nil {
		t.Error("expected error for invalid content")
	}
}

func TestHeldErrorMessage(t *testing.T) {
	err := &HeldError{Path: "/repo/.git/relm.lock"}
	if got := err.Error(); got != "/repo/.git/relm.lock: another relm run holds the lock" {
		t.Errorf("Error() = %q", got)
	}
}
