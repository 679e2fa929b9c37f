// Package history finds where the commits of branchless issues ended up.
//
// An issue whose key names no remote branch may still have been committed
// somewhere. Trace scans the commit log for subjects mentioning the key and
// reports the remote branches that contain those commits.
package history

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/steveyegge/relm/internal/git"
	"github.com/steveyegge/relm/internal/telemetry"
)

const scopeName = "github.com/steveyegge/relm/history"

// DefaultHashLength is the abbreviated hash length passed to containment lookups.
const DefaultHashLength = 8

// VCS is the subset of *git.Repository the tracer needs.
type VCS interface {
	LogAllOneline(ctx context.Context) (git.CommitLog, error)
	BranchesContainingCommit(ctx context.Context, hash string) ([]string, error)
}

// CommitTrace is the set of remote branches holding an issue's commits.
// An empty Branches means the key appears in no commit reachable from a
// remote branch.
type CommitTrace struct {
	IssueKey string   `json:"key"`
	Branches []string `json:"branches"`
	// Commits are the abbreviated hashes whose subjects mention the key.
	Commits []string `json:"commits,omitempty"`
	// Err is set when a containment lookup failed; Branches then holds what
	// was found before the failure.
	Err error `json:"-"`
}

// Line renders the trace as "KEY belong to {a, b}".
func (c CommitTrace) Line() string {
	line := c.IssueKey + " belong to {" + strings.Join(c.Branches, ", ") + "}"
	if c.Err != nil {
		line += " (error: " + c.Err.Error() + ")"
	}
	return line
}

// Tracer traces issue keys through the commit log.
type Tracer struct {
	VCS VCS
	// HashLength is the hash prefix length; zero means DefaultHashLength.
	HashLength int
}

// Trace returns one CommitTrace per distinct key, sorted by key. The log is
// read once per call. Matching is a plain substring test on the subject, so
// "PROJ-1" also matches "PROJ-10".
func (t *Tracer) Trace(ctx context.Context, keys []string) (traces []CommitTrace, err error) {
	inst := telemetry.NewInstrument(scopeName, "relm.history")
	ctx, span := inst.Start(ctx, "history.trace", attribute.Int("relm.keys", len(keys)))
	defer func() { span.Done(ctx, err) }()

	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	traces = make([]CommitTrace, 0, len(keys))
	if len(keys) == 0 {
		return traces, nil
	}

	log, err := t.VCS.LogAllOneline(ctx)
	if err != nil {
		return nil, err
	}

	n := t.HashLength
	if n <= 0 {
		n = DefaultHashLength
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return traces, err
		}
		traces = append(traces, t.traceKey(ctx, log, key, n))
	}
	return traces, nil
}

func (t *Tracer) traceKey(ctx context.Context, log git.CommitLog, key string, n int) CommitTrace {
	tr := CommitTrace{IssueKey: key, Branches: []string{}}
	seen := make(map[string]struct{})

	for c := range log.All() {
		if !strings.Contains(c.Subject, key) {
			continue
		}
		hash := c.ShortHash(n)
		tr.Commits = append(tr.Commits, hash)

		branches, err := t.VCS.BranchesContainingCommit(ctx, hash)
		if err != nil {
			tr.Err = err
			break
		}
		for _, b := range branches {
			if _, ok := seen[b]; !ok {
				seen[b] = struct{}{}
				tr.Branches = append(tr.Branches, b)
			}
		}
	}

	slices.Sort(tr.Branches)
	return tr
}
