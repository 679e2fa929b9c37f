package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Outcome is the result of a merge attempt.
type Outcome int

const (
	// Merged means the merge moved HEAD (fast-forward or merge commit).
	Merged Outcome = iota + 1
	// AlreadyUpToDate means the source was already contained in the target.
	AlreadyUpToDate
	// Conflict means git stopped with unresolved conflicts.
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case Merged:
		return "merged"
	case AlreadyUpToDate:
		return "already up to date"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome as its String form.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Merge merges source into the checked-out branch without opening an editor.
//
// The outcome is derived from git's exit status and HEAD, never from output
// text: a successful merge that leaves HEAD unchanged is AlreadyUpToDate, one
// that moves HEAD is Merged. A failed merge that leaves MERGE_HEAD or unmerged
// paths behind is Conflict; the working tree is then mid-merge and the caller
// must AbortMerge or HardReset before doing anything else. Any other failure
// is returned as an error.
func (r *Repository) Merge(ctx context.Context, source string) (Outcome, error) {
	before, err := r.head(ctx)
	if err != nil {
		return 0, err
	}

	if _, mergeErr := r.run(ctx, "merge", "--no-edit", "--quiet", source); mergeErr != nil {
		if r.MergeInProgress(ctx) || r.hasUnmergedPaths(ctx) {
			log.Logf("merge %s: conflict\n", source)
			return Conflict, nil
		}
		return 0, fmt.Errorf("merge %s: %w", source, mergeErr)
	}

	after, err := r.head(ctx)
	if err != nil {
		return 0, err
	}
	if after == before {
		return AlreadyUpToDate, nil
	}
	return Merged, nil
}

// MergeInProgress reports whether a merge is stopped waiting for resolution.
func (r *Repository) MergeInProgress(ctx context.Context) bool {
	dir, err := r.GitDir(ctx)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, "MERGE_HEAD"))
	return err == nil
}

// AbortMerge cancels an in-progress merge, restoring the pre-merge state.
func (r *Repository) AbortMerge(ctx context.Context) error {
	if _, err := r.run(ctx, "merge", "--abort"); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	return nil
}

// HardReset discards all changes in the index and working tree.
func (r *Repository) HardReset(ctx context.Context) error {
	if _, err := r.run(ctx, "reset", "--hard", "--quiet", "HEAD"); err != nil {
		return fmt.Errorf("reset working tree: %w", err)
	}
	return nil
}

func (r *Repository) hasUnmergedPaths(ctx context.Context) bool {
	out, err := r.run(ctx, "diff", "--name-only", "--diff-filter=U")
	return err == nil && strings.TrimSpace(out) != ""
}

func (r *Repository) head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}
