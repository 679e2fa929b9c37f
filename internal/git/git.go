// Package git wraps the git operations relm needs to reconcile issue branches
// against a repository.
//
// The package is organized into focused files:
//   - git.go: Repository handle, Open, command runner
//   - gitdir.go: repository discovery
//   - errors.go: sentinel and typed errors
//   - branch.go: remote listing, local tracking branches, checkout, delete
//   - merge.go: merge with explicit outcomes, abort, reset
//   - log.go: history listing and branch containment
//
// Every operation goes through a single *Repository, which owns the working
// tree and the current checkout. Callers must not share one Repository across
// goroutines.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/steveyegge/relm/internal/debug"
)

var log = debug.Component("git")

// Options controls how Open resolves the remote and mainline.
type Options struct {
	// Remote names the remote to reconcile against. Empty selects "origin"
	// when present, otherwise the first configured remote.
	Remote string

	// Mainline names the long-lived integration branch. Empty resolves
	// <remote>/HEAD, then "main", then "master".
	Mainline string
}

// Repository is the handle for one local git repository.
type Repository struct {
	dir      string
	remote   string
	mainline string
}

// Open resolves the repository containing dir.
// It returns ErrNotRepository when dir is not inside a git work tree. A
// repository without remotes opens successfully; remote operations then
// fail with ErrNoRemote.
func Open(ctx context.Context, dir string, opts Options) (*Repository, error) {
	root, err := topLevel(ctx, dir)
	if err != nil {
		return nil, err
	}

	r := &Repository{dir: root}
	if r.remote, err = r.resolveRemote(ctx, opts.Remote); err != nil {
		return nil, err
	}
	r.mainline = r.resolveMainline(ctx, opts.Mainline)

	log.Logf("opened %s (remote=%q mainline=%q)\n", r.dir, r.remote, r.mainline)
	return r, nil
}

// Dir returns the top-level directory of the work tree.
func (r *Repository) Dir() string { return r.dir }

// Remote returns the remote name, or "" when the repository has none.
func (r *Repository) Remote() string { return r.remote }

// Mainline returns the mainline branch name.
func (r *Repository) Mainline() string { return r.mainline }

func (r *Repository) resolveRemote(ctx context.Context, want string) (string, error) {
	out, err := r.run(ctx, "remote")
	if err != nil {
		return "", fmt.Errorf("list remotes: %w", err)
	}
	remotes := strings.Fields(out)

	if want != "" {
		if !slices.Contains(remotes, want) {
			return "", fmt.Errorf("remote %q: %w", want, ErrNoRemote)
		}
		return want, nil
	}
	if len(remotes) == 0 {
		return "", nil
	}
	if slices.Contains(remotes, "origin") {
		return "origin", nil
	}
	return remotes[0], nil
}

func (r *Repository) resolveMainline(ctx context.Context, want string) string {
	if want != "" {
		return want
	}

	if r.remote != "" {
		prefix := "refs/remotes/" + r.remote + "/"
		if out, err := r.run(ctx, "symbolic-ref", "--quiet", prefix+"HEAD"); err == nil {
			if ref := strings.TrimSpace(out); strings.HasPrefix(ref, prefix) {
				return strings.TrimPrefix(ref, prefix)
			}
		}
	}

	if ok, _ := r.LocalBranchExists(ctx, "main"); ok {
		return "main"
	}
	if ok, _ := r.RemoteBranchExists(ctx, "main"); ok {
		return "main"
	}
	return "master"
}

func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, r.dir, args...)
}

// runGit executes git in dir and returns stdout. Failures are reported as
// *CommandError carrying the exit code and trimmed output.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_MERGE_AUTOEDIT=no",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Logf("git %s\n", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		cerr := &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Stdout: oneLine(stdout.String()),
			Err:    err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), cerr
	}
	return stdout.String(), nil
}

// oneLine folds multi-line git output into a single line.
func oneLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "; ")
}
