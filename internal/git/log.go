package git

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
)

// Commit is one line of the commit log.
type Commit struct {
	Hash    string
	Subject string
}

// ShortHash returns the first n characters of the hash.
func (c Commit) ShortHash(n int) string {
	if n <= 0 || n >= len(c.Hash) {
		return c.Hash
	}
	return c.Hash[:n]
}

// CommitLog is a materialized commit log, newest first.
type CommitLog []Commit

// All iterates the log. It can be ranged over any number of times.
func (l CommitLog) All() iter.Seq[Commit] {
	return func(yield func(Commit) bool) {
		for _, c := range l {
			if !yield(c) {
				return
			}
		}
	}
}

// LogAllOneline returns every commit reachable from any ref as hash/subject pairs.
func (r *Repository) LogAllOneline(ctx context.Context) (CommitLog, error) {
	out, err := r.run(ctx, "log", "--all", "--format=%H%x09%s")
	if err != nil {
		return nil, fmt.Errorf("read commit log: %w", err)
	}

	var commits CommitLog
	for _, line := range splitLines(out) {
		hash, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits, nil
}

// BranchesContainingCommit returns the remote branches, remote prefix
// stripped, whose history includes hash.
func (r *Repository) BranchesContainingCommit(ctx context.Context, hash string) ([]string, error) {
	if r.remote == "" {
		return nil, ErrNoRemote
	}

	out, err := r.run(ctx, "branch", "--remotes", "--contains", strings.TrimSpace(hash), "--format=%(refname)")
	if err != nil {
		return nil, fmt.Errorf("branches containing %s: %w", hash, err)
	}

	prefix := "refs/remotes/" + r.remote + "/"
	var names []string
	for _, ref := range splitLines(out) {
		ref = strings.TrimSpace(ref)
		name := strings.TrimPrefix(ref, prefix)
		if name == ref || name == "HEAD" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
