package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/config"
	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/telemetry"
)

// bootstrap runs before every command: signal context, config, verbosity,
// telemetry.
func bootstrap(cmd *cobra.Command, opts *options) error {
	setupSignalContext(cmd, opts)

	config.SetConfigPath(opts.configPath)
	if err := config.Initialize(); err != nil {
		return err
	}
	applyViperOverrides(cmd, opts)
	applyVerbosityFlags(opts)

	if err := telemetry.Init(cmd.Context(), telemetrySettings(cmd, opts)); err != nil {
		// Telemetry never blocks a run.
		debug.Logf("telemetry init failed: %v\n", err)
	}
	return nil
}

// setupSignalContext makes the command context cancel on SIGINT/SIGTERM so an
// in-flight merge is aborted and mainline restored before exit.
func setupSignalContext(cmd *cobra.Command, opts *options) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	opts.ctx, opts.stop = ctx, stop
	cmd.SetContext(ctx)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package.
func applyVerbosityFlags(opts *options) {
	debug.SetVerbose(opts.verbose)
	debug.SetQuiet(opts.quiet)
}

// applyViperOverrides fills flags that were not given on the command line
// from the config file and environment. Priority: flags > config > defaults.
func applyViperOverrides(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	if !flags.Changed("json") {
		opts.jsonOutput = config.GetBool(config.KeyJSON)
	}
	if !flags.Changed("verbose") {
		opts.verbose = config.GetBool(config.KeyVerbose)
	}
	if !flags.Changed("quiet") {
		opts.quiet = config.GetBool(config.KeyQuiet)
	}
	if opts.verbose && opts.quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: --verbose and --quiet both set; --quiet wins for normal output")
	}
}

// telemetrySettings reads the telemetry switches and labels the run with the
// repository directory and tracker project.
func telemetrySettings(cmd *cobra.Command, opts *options) telemetry.Settings {
	s := telemetry.Settings{
		Enabled:         config.GetBool(config.KeyTelemetryEnabled),
		Stdout:          config.GetBool(config.KeyTelemetryStdout),
		Output:          cmd.ErrOrStderr(),
		Endpoint:        config.GetString(config.KeyTelemetryOTLP),
		MetricsEndpoint: config.GetString(config.KeyTelemetryMetrics),
		ServiceName:     config.GetString(config.KeyServiceName),
		Version:         Version,
		Project:         config.ProjectFor(opts.dir),
		Command:         cmd.CommandPath(),
	}
	if abs, err := filepath.Abs(opts.dir); err == nil {
		s.Repository = filepath.Base(abs)
	}
	return s
}
