// Package merge integrates issue branches into a release branch, or refreshes
// them from mainline, one issue at a time.
//
// Each issue is processed by the state machine in processIssue and always
// yields exactly one Result. A failure on one issue never stops the others;
// only context cancellation ends a run early. Whatever happens inside an
// issue, the working tree is returned to mainline before the next one starts.
package merge

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/git"
	"github.com/steveyegge/relm/internal/telemetry"
)

var log = debug.Component("merge")

const scopeName = "github.com/steveyegge/relm/merge"

// ErrProtectedBranch is recorded for an issue key naming the mainline or the
// release branch itself.
var ErrProtectedBranch = errors.New("refusing to merge a protected branch")

// VCS is the subset of *git.Repository the orchestrator drives.
type VCS interface {
	Mainline() string
	Checkout(ctx context.Context, name string) error
	EnsureLocalBranch(ctx context.Context, name, base string) (git.LocalBranch, error)
	Merge(ctx context.Context, source string) (git.Outcome, error)
	MergeInProgress(ctx context.Context) bool
	AbortMerge(ctx context.Context) error
	HardReset(ctx context.Context) error
	DeleteBranch(ctx context.Context, name string, force bool) error
}

// Orchestrator runs the per-issue merges for one invocation.
type Orchestrator struct {
	VCS VCS

	// Release is the release branch to merge issues into. Empty selects
	// mainline mode: mainline is merged into each issue branch instead.
	Release string

	// OnResult, when set, is called with each result as soon as it is known.
	OnResult func(Result)

	// RunID tags the report and spans.
	RunID string

	inst     *telemetry.Instrument
	outcomes metric.Int64Counter
}

// Deletable reports whether an issue branch should be removed after a merge
// with the given outcome. In mainline mode a branch that just received new
// commits is kept for review.
func Deletable(releaseMode bool, outcome git.Outcome) bool {
	switch outcome {
	case git.Merged:
		return releaseMode
	case git.AlreadyUpToDate:
		return true
	default:
		return false
	}
}

// ResolveTarget prepares the release branch: mainline is checked out first,
// then an existing local release branch is reused, a remote one is tracked,
// or a new one is cut from mainline. The release branch is left checked out.
// It is a no-op in mainline mode.
func (o *Orchestrator) ResolveTarget(ctx context.Context) (git.LocalBranch, error) {
	if o.Release == "" {
		return git.LocalBranch{}, nil
	}
	mainline := o.VCS.Mainline()
	if err := o.VCS.Checkout(ctx, mainline); err != nil {
		return git.LocalBranch{}, err
	}
	target, err := o.VCS.EnsureLocalBranch(ctx, o.Release, mainline)
	if err != nil {
		return git.LocalBranch{}, fmt.Errorf("resolve release %s: %w", o.Release, err)
	}
	if err := o.VCS.Checkout(ctx, o.Release); err != nil {
		return git.LocalBranch{}, err
	}
	log.Logf("release target %s (created=%v upstream=%q)\n", target.Name, target.Created, target.Upstream)
	return target, nil
}

// Run processes keys in order and returns the report. The release target is
// resolved first; failing that is the only error that prevents any issue from
// being processed. On cancellation the remaining keys are skipped, the
// partial report is returned together with the context's error, and the
// working tree is still restored to mainline.
func (o *Orchestrator) Run(ctx context.Context, keys []string) (*Report, error) {
	o.instrument()

	report := &Report{
		RunID:    o.RunID,
		Release:  o.Release,
		Mainline: o.VCS.Mainline(),
		Results:  make([]Result, 0, len(keys)),
	}

	defer func() {
		// The run always ends on mainline, even when no issue was processed.
		if err := o.VCS.Checkout(context.WithoutCancel(ctx), report.Mainline); err != nil {
			log.Logf("final checkout of %s failed: %v\n", report.Mainline, err)
		}
	}()

	if _, err := o.ResolveTarget(ctx); err != nil {
		return report, err
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			return report, err
		}
		res := o.processIssue(ctx, key)
		report.Results = append(report.Results, res)
		if o.OnResult != nil {
			o.OnResult(res)
		}
	}

	if err := ctx.Err(); err != nil {
		report.Interrupted = true
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) instrument() {
	if o.inst == nil {
		o.inst = telemetry.NewInstrument(scopeName, "relm.merge")
		o.outcomes = o.inst.Counter("outcomes", "Per-issue merge outcomes")
	}
}

// processIssue runs one issue through acquire, merge, restore and cleanup.
func (o *Orchestrator) processIssue(ctx context.Context, key string) (res Result) {
	res.Key = key

	ctx, span := o.inst.Start(ctx, "merge.issue",
		attribute.String("relm.issue", key),
		attribute.String("relm.release", o.Release),
		attribute.String("relm.run_id", o.RunID),
	)
	defer func() {
		span.SetAttributes(attribute.String("relm.outcome", res.Label()))
		o.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Label())))
		span.Done(ctx, res.Err)
	}()

	if key == o.VCS.Mainline() || (o.Release != "" && key == o.Release) {
		res.Err = fmt.Errorf("%s: %w", key, ErrProtectedBranch)
		return res
	}

	o.attempt(ctx, &res)

	if res.Err == nil && Deletable(o.Release != "", res.Outcome) {
		if err := o.VCS.DeleteBranch(context.WithoutCancel(ctx), key, true); err != nil {
			log.Logf("%s: branch cleanup failed: %v\n", key, err)
			res.CleanupErr = errors.Join(res.CleanupErr, err)
		} else {
			res.Deleted = true
		}
	}
	return res
}

// attempt acquires the issue branch and merges it. The deferred restore runs
// on every exit path, including cancellation mid-merge.
func (o *Orchestrator) attempt(ctx context.Context, res *Result) {
	defer o.restore(context.WithoutCancel(ctx), res)

	if _, err := o.VCS.EnsureLocalBranch(ctx, res.Key, ""); err != nil {
		res.Err = err
		return
	}

	target, source := o.Release, res.Key
	if o.Release == "" {
		target, source = res.Key, o.VCS.Mainline()
	}
	if err := o.VCS.Checkout(ctx, target); err != nil {
		res.Err = err
		return
	}

	outcome, err := o.VCS.Merge(ctx, source)
	if err != nil {
		res.Err = err
		return
	}
	res.Outcome = outcome
	log.Logf("%s: merge %s into %s: %s\n", res.Key, source, target, outcome)

	if outcome == git.Conflict {
		if err := o.VCS.AbortMerge(ctx); err != nil {
			res.CleanupErr = errors.Join(res.CleanupErr, err)
		}
		if err := o.VCS.HardReset(ctx); err != nil {
			res.CleanupErr = errors.Join(res.CleanupErr, err)
		}
	}
}

// restore aborts any merge left in progress and checks out mainline.
// Failures are recorded on the result, never returned.
func (o *Orchestrator) restore(ctx context.Context, res *Result) {
	if o.VCS.MergeInProgress(ctx) {
		if err := o.VCS.AbortMerge(ctx); err != nil {
			res.CleanupErr = errors.Join(res.CleanupErr, err)
			if err := o.VCS.HardReset(ctx); err != nil {
				res.CleanupErr = errors.Join(res.CleanupErr, err)
			}
		}
	}
	if err := o.VCS.Checkout(ctx, o.VCS.Mainline()); err != nil {
		log.Logf("%s: restore to %s failed: %v\n", res.Key, o.VCS.Mainline(), err)
		res.CleanupErr = errors.Join(res.CleanupErr, err)
	}
}
