package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BranchRef is a remote-tracking branch with the remote prefix stripped.
type BranchRef struct {
	Name        string    `json:"name"`
	LastUpdated time.Time `json:"last_updated"`
}

// LocalBranch is the handle returned by EnsureLocalBranch.
type LocalBranch struct {
	Name string
	// Upstream is the tracked ref (e.g. "origin/PROJ-1"), empty for local-only branches.
	Upstream string
	// Created is true when the branch did not exist locally before the call.
	Created bool
}

// ListRemoteBranches returns the branches of the configured remote ordered by
// name. The remote's HEAD symref is skipped. LastUpdated is the author date
// of each branch tip.
func (r *Repository) ListRemoteBranches(ctx context.Context) ([]BranchRef, error) {
	if r.remote == "" {
		return nil, ErrNoRemote
	}

	prefix := "refs/remotes/" + r.remote + "/"
	out, err := r.run(ctx, "for-each-ref", "--sort=refname",
		"--format=%(refname)%09%(authordate:iso-strict)",
		strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return nil, fmt.Errorf("list remote branches: %w", err)
	}

	var branches []BranchRef
	for _, line := range splitLines(out) {
		ref, date, _ := strings.Cut(line, "\t")
		name := strings.TrimPrefix(ref, prefix)
		if name == ref || name == "HEAD" {
			continue
		}
		b := BranchRef{Name: name}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(date)); err == nil {
			b.LastUpdated = t
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// LocalBranchExists reports whether refs/heads/<name> exists.
func (r *Repository) LocalBranchExists(ctx context.Context, name string) (bool, error) {
	return r.verifyRef(ctx, "refs/heads/"+name)
}

// RemoteBranchExists reports whether <remote>/<name> exists. It is always
// false for a repository without remotes.
func (r *Repository) RemoteBranchExists(ctx context.Context, name string) (bool, error) {
	if r.remote == "" {
		return false, nil
	}
	return r.verifyRef(ctx, "refs/remotes/"+r.remote+"/"+name)
}

func (r *Repository) verifyRef(ctx context.Context, ref string) (bool, error) {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	var cerr *CommandError
	if errors.As(err, &cerr) && cerr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// EnsureLocalBranch makes name available as a local branch.
//
// An existing local branch is checked out and, when it tracks an upstream,
// pulled. Otherwise a local branch tracking <remote>/<name> is created. When
// the remote ref is missing the branch is created from base; with an empty
// base the call fails with *RemoteRefNotFoundError.
func (r *Repository) EnsureLocalBranch(ctx context.Context, name, base string) (LocalBranch, error) {
	exists, err := r.LocalBranchExists(ctx, name)
	if err != nil {
		return LocalBranch{}, err
	}

	if exists {
		if err := r.Checkout(ctx, name); err != nil {
			return LocalBranch{}, err
		}
		upstream := r.upstream(ctx, name)
		if upstream != "" {
			if _, err := r.run(ctx, "pull", "--no-edit", "--no-rebase", "--quiet"); err != nil {
				return LocalBranch{}, fmt.Errorf("pull %s: %w", name, err)
			}
		}
		return LocalBranch{Name: name, Upstream: upstream}, nil
	}

	remoteExists, err := r.RemoteBranchExists(ctx, name)
	if err != nil {
		return LocalBranch{}, err
	}
	if remoteExists {
		upstream := r.remote + "/" + name
		if _, err := r.run(ctx, "branch", "--quiet", "--track", name, upstream); err != nil {
			return LocalBranch{}, fmt.Errorf("create tracking branch %s: %w", name, err)
		}
		return LocalBranch{Name: name, Upstream: upstream, Created: true}, nil
	}

	if base == "" {
		return LocalBranch{}, &RemoteRefNotFoundError{Remote: r.remote, Branch: name}
	}
	if _, err := r.run(ctx, "branch", "--quiet", "--no-track", name, base); err != nil {
		return LocalBranch{}, fmt.Errorf("create branch %s from %s: %w", name, base, err)
	}
	return LocalBranch{Name: name, Created: true}, nil
}

// upstream returns the short upstream name of a local branch, or "".
func (r *Repository) upstream(ctx context.Context, name string) string {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", name+"@{upstream}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Checkout switches the working tree to the named branch.
func (r *Repository) Checkout(ctx context.Context, name string) error {
	if _, err := r.run(ctx, "checkout", "--quiet", name); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name. A detached HEAD is an error.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// DeleteBranch removes a local branch. With force, unmerged branches are
// removed too.
func (r *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := r.run(ctx, "branch", "--quiet", flag, name); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimRight(line, "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
