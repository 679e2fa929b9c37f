package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/config"
	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/git"
	"github.com/steveyegge/relm/internal/history"
	"github.com/steveyegge/relm/internal/jira"
	"github.com/steveyegge/relm/internal/lockfile"
	"github.com/steveyegge/relm/internal/merge"
	"github.com/steveyegge/relm/internal/resolver"
	"github.com/steveyegge/relm/internal/ui"
)

func newMergeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge ready issue branches into a release, or mainline into them",
		Long: `Without --release, mainline is merged into every ready issue branch
(same as 'relm -m'). With --release, every ready issue branch is merged into
the release branch, which is created from mainline when it does not exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, opts, opts.release)
		},
	}
	cmd.Flags().StringVarP(&opts.release, "release", "r", "", "Release branch to merge issues into")
	cmd.Flags().StringSliceVarP(&opts.issues, "issues", "i", nil, "Issue keys or browse URLs; overrides the tracker query")
	return cmd
}

// mergeDocument is the --json form of a merge run.
type mergeDocument struct {
	*merge.Report
	Counts   map[string]int        `json:"counts"`
	NotFound []history.CommitTrace `json:"not_found"`
}

// runMerge is the merge pipeline: collect keys, match them to remote
// branches, merge the matched ones and trace the rest.
func runMerge(cmd *cobra.Command, opts *options, release string) error {
	ctx := cmd.Context()
	p := newPrinter(cmd, opts)

	repo, err := openRepository(ctx, opts)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	unlock, err := acquireRunLock(ctx, repo, runID, cmd.CommandPath())
	if err != nil {
		return err
	}
	defer unlock()

	keys, err := issueKeys(ctx, cmd, opts, release)
	if err != nil {
		return err
	}
	debug.Logf("issues: %v\n", keys)

	if release != "" {
		p.header("merge to " + release)
	} else {
		p.header("merge from " + repo.Mainline())
	}

	branches, err := repo.ListRemoteBranches(ctx)
	if err != nil {
		return err
	}
	debug.Logf("remote branches: %v\n", resolver.BranchNames(branches))
	part := resolver.Partition(keys, branches)

	orch := &merge.Orchestrator{
		VCS:     repo,
		Release: release,
		RunID:   runID,
		OnResult: func(res merge.Result) {
			p.line(ui.RenderOutcome(res.Label(), res.Line()))
			if res.CleanupErr != nil {
				debug.Logf("%s cleanup: %v\n", res.Key, res.CleanupErr)
			}
		},
	}
	report, runErr := orch.Run(ctx, part.Matched)
	doc := mergeDocument{Report: report, NotFound: []history.CommitTrace{}}
	if runErr != nil {
		if report.Interrupted && p.json {
			doc.Counts = report.Counts()
			_ = p.outputJSON(doc)
		}
		return runErr
	}

	p.header("issues with branches not found")
	tracer := &history.Tracer{VCS: repo, HashLength: config.GetInt(config.KeyTraceHashLength)}
	traces, err := tracer.Trace(ctx, part.Unmatched)
	if err != nil {
		return fmt.Errorf("trace issues without branches: %w", err)
	}
	printTraces(p, traces)

	if p.json {
		doc.Counts = report.Counts()
		doc.NotFound = traces
		return p.outputJSON(doc)
	}
	return nil
}

func printTraces(p *printer, traces []history.CommitTrace) {
	for _, tr := range traces {
		if tr.Err != nil {
			p.line(ui.RenderWarn(tr.Line()))
			continue
		}
		p.line(tr.Line())
	}
}

// acquireRunLock takes the work tree's run lock and returns its release.
func acquireRunLock(ctx context.Context, repo *git.Repository, runID, command string) (func(), error) {
	dir, err := repo.GitDir(ctx)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.Acquire(dir, lockfile.Info{RunID: runID, Command: command})
	if err != nil {
		return nil, err
	}
	debug.Logf("holding %s\n", lock.Path())
	return func() {
		if err := lock.Release(); err != nil {
			debug.Logf("release %s: %v\n", lock.Path(), err)
		}
	}, nil
}

// openRepository opens the repository at --dir with the configured remote
// and mainline.
func openRepository(ctx context.Context, opts *options) (*git.Repository, error) {
	return git.Open(ctx, opts.dir, git.Options{
		Remote:   config.GetString(config.KeyGitRemote),
		Mainline: config.GetString(config.KeyGitMainline),
	})
}

// issueKeys returns the explicit --issues list, or the ready issues from the
// tracker for the given release.
func issueKeys(ctx context.Context, cmd *cobra.Command, opts *options, release string) ([]string, error) {
	if len(opts.issues) > 0 {
		keys := make([]string, 0, len(opts.issues))
		for _, ref := range opts.issues {
			if key := jira.ExtractKey(ref); key != "" {
				keys = append(keys, key)
			}
		}
		return keys, nil
	}

	gw, _, err := newGateway(opts)
	if err != nil {
		return nil, err
	}
	keys, err := gw.QueryOpenIssueKeys(ctx, release)
	return keys, surfaceQueryError(cmd, err)
}

// newGateway builds the tracker gateway from the resolved settings.
func newGateway(opts *options) (*jira.Gateway, config.Tracker, error) {
	t, err := config.ResolveTracker(opts.dir)
	if err != nil {
		return nil, t, err
	}
	client := jira.NewClient(t.URL, t.Token, t.Scheme)
	gw := jira.NewGateway(client, jira.Settings{
		Project:          t.Project,
		MainlineStatuses: config.GetList(config.KeyMainlineStatuses),
		ReleaseStatuses:  config.GetList(config.KeyReleaseStatuses),
		ExcludeLabels:    config.GetList(config.KeyExcludeLabels),
	})
	return gw, t, nil
}

// surfaceQueryError prints the messages of a *jira.QueryError and clears it;
// the failed query then counts as an empty result. Other errors pass through.
func surfaceQueryError(cmd *cobra.Command, err error) error {
	var qerr *jira.QueryError
	if !errors.As(err, &qerr) {
		return err
	}
	for _, msg := range qerr.Messages {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn(msg))
	}
	return nil
}
