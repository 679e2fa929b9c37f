package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/config"
	"github.com/steveyegge/relm/internal/history"
	"github.com/steveyegge/relm/internal/jira"
)

func newTraceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <key>...",
		Short: "List the remote branches holding commits that mention each issue",
		Example: `  relm trace PROJ-12 PROJ-15
  relm trace https://company.atlassian.net/browse/PROJ-12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p := newPrinter(cmd, opts)

			repo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(args))
			for _, arg := range args {
				if key := jira.ExtractKey(arg); key != "" {
					keys = append(keys, key)
				}
			}

			tracer := &history.Tracer{VCS: repo, HashLength: config.GetInt(config.KeyTraceHashLength)}
			traces, err := tracer.Trace(ctx, keys)
			if err != nil {
				return err
			}
			if p.json {
				return p.outputJSON(traces)
			}
			printTraces(p, traces)
			return nil
		},
	}
}
