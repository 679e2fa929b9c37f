package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/git"
	"github.com/steveyegge/relm/internal/jira"
	"github.com/steveyegge/relm/internal/telemetry"
	"github.com/steveyegge/relm/internal/ui"
)

var (
	// Version is the current version of relm (overridden by ldflags at build time)
	Version = "0.0.2"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 1
	exitAccess      = 2
)

// options holds the flag values of one invocation.
type options struct {
	release    string
	issues     []string
	status     bool
	mergeMain  bool
	since      string
	jsonOutput bool
	verbose    bool
	quiet      bool
	configPath string
	dir        string

	// ctx is the signal-aware context installed by bootstrap.
	ctx  context.Context
	stop context.CancelFunc
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relm",
		Short: "relm - release management tool",
		Long: `Merges the feature branches of ready Jira issues into a release branch,
or merges mainline into them, and traces issues that have no branch left.

Examples:
  relm -r release-1.4          merge ready issues into release-1.4
  relm -m                      merge mainline into every ready issue branch
  relm -m -i PROJ-1,PROJ-2     same, for an explicit issue list
  relm -s                      show tracker status for every remote branch`,
		Version:       fmt.Sprintf("%s (%s)", Version, Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case opts.status:
				return runStatus(cmd, opts)
			case opts.release != "" || opts.mergeMain:
				return runMerge(cmd, opts, opts.release)
			default:
				// No mode selected - show help
				return cmd.Help()
			}
		},
	}
	rootCmd.SetVersionTemplate("relm version {{.Version}}\n")
	// Registered up front so command lookup knows --version takes no value.
	rootCmd.InitDefaultVersionFlag()

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output a single JSON document")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable debug output (or set RELM_DEBUG=1)")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress headers and progress output")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/relm/config.yaml)")
	pf.StringVarP(&opts.dir, "dir", "C", ".", "Run as if started in this directory")

	f := rootCmd.Flags()
	f.StringVarP(&opts.release, "release", "r", "", "Release branch to merge issues into")
	f.StringSliceVarP(&opts.issues, "issues", "i", nil, "Issue keys or browse URLs (repeatable or comma-separated); overrides the tracker query")
	f.BoolVarP(&opts.status, "status", "s", false, "Show tracker status for every remote branch")
	f.BoolVarP(&opts.mergeMain, "merge", "m", false, "Merge mainline into every ready issue branch")

	rootCmd.AddCommand(
		newMergeCmd(opts),
		newStatusCmd(opts),
		newTraceCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// execute runs relm with args and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && opts.ctx != nil && opts.ctx.Err() != nil {
		// A git child killed by the signal reports its own failure; the
		// interrupt is what matters.
		err = context.Canceled
	}

	if opts.stop != nil {
		opts.stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Shutdown(shutdownCtx)
	cancel()

	code := exitCode(err)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "exit")
	default:
		fmt.Fprintln(stderr, ui.RenderFail(fmt.Sprintf("Error: %v", err)))
	}
	return code
}

// exitCode maps a command error to the process exit status. Only a missing
// repository and a rejected tracker credential get the distinct status.
func exitCode(err error) int {
	var authErr *jira.AuthError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, git.ErrNotRepository), errors.As(err, &authErr):
		return exitAccess
	default:
		return exitFailure
	}
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
