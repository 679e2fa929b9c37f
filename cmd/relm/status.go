package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/jira"
	"github.com/steveyegge/relm/internal/timeparsing"
	"github.com/steveyegge/relm/internal/ui"
)

func newStatusCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracker status for every remote branch (same as 'relm -s')",
		Example: `  relm status
  relm status --since 2w
  relm status --since "last monday"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.since, "since", "", "Only branches with commits since this time (2w, 2026-01-31, yesterday)")
	return cmd
}

// runStatus prints key, status and last commit date for every remote branch
// named like an issue, sorted by status.
func runStatus(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	p := newPrinter(cmd, opts)

	var since time.Time
	if opts.since != "" {
		t, err := timeparsing.ParseSince(opts.since, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		since = t
		debug.Logf("status: branches updated since %s\n", since.Format(time.RFC3339))
	}

	repo, err := openRepository(ctx, opts)
	if err != nil {
		return err
	}
	branches, err := repo.ListRemoteBranches(ctx)
	if err != nil {
		return err
	}

	var keys []string
	for _, b := range branches {
		switch {
		case !jira.LooksLikeKey(b.Name):
			debug.Logf("status: skipping branch %s\n", b.Name)
		case b.LastUpdated.Before(since):
			debug.Logf("status: %s last updated %s\n", b.Name, b.LastUpdated.Format(time.DateOnly))
		default:
			keys = append(keys, b.Name)
		}
	}

	gw, tracker, err := newGateway(opts)
	if err != nil {
		return err
	}
	records, err := gw.QueryStatusesByKeys(ctx, keys)
	if err := surfaceQueryError(cmd, err); err != nil {
		return err
	}

	rows := make([]ui.StatusRow, 0, len(records))
	for _, rec := range records {
		row := ui.StatusRow{
			Key:    rec.Key,
			Status: rec.Status,
			URL:    jira.BrowseURL(tracker.URL, rec.Key),
		}
		for _, b := range branches {
			if b.Name == rec.Key {
				row.LastCommit = b.LastUpdated
				break
			}
		}
		rows = append(rows, row)
	}

	if p.json {
		return p.outputJSON(rows)
	}
	if len(rows) == 0 {
		p.line(ui.RenderMuted("No issues found"))
		return nil
	}
	p.line(ui.StatusTable(rows))
	return nil
}
