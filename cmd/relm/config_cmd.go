package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/config"
	"github.com/steveyegge/relm/internal/ui"
)

var listKeys = map[string]bool{
	config.KeyMainlineStatuses: true,
	config.KeyReleaseStatuses:  true,
	config.KeyExcludeLabels:    true,
}

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage the user configuration file ($XDG_CONFIG_HOME/relm/config.yaml).

Every key can also be set through the environment: RELM_ followed by the key
in upper case with '.' and '-' replaced by '_' (e.g. RELM_JIRA_URL).

Examples:
  relm config set jira.url "https://company.atlassian.net"
  relm config set jira.auth "<base64 user:token>"
  relm config project PROJ
  relm config get jira.url
  relm config show`,
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SaveValue(key, value); err != nil {
				return fmt.Errorf("setting config: %w", err)
			}
			p := newPrinter(cmd, opts)
			if p.json {
				return p.outputJSON(map[string]string{
					"key":      key,
					"value":    displayValue(key, value),
					"location": config.ConfigPath(),
				})
			}
			p.line(ui.RenderPass(fmt.Sprintf("Set %s = %s (in %s)", key, displayValue(key, value), config.ConfigPath())))
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsKnownKey(key) {
				return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(config.KnownKeys(), ", "))
			}
			value := lookupValue(key)
			p := newPrinter(cmd, opts)
			if p.json {
				return p.outputJSON(map[string]string{"key": key, "value": value})
			}
			if value == "" {
				p.line(ui.RenderMuted(key + " (not set)"))
				return nil
			}
			p.line(value)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd, opts)
			settings := make(map[string]string)
			for _, key := range config.KnownKeys() {
				settings[key] = displayValue(key, lookupValue(key))
			}
			projects := config.Projects()
			if p.json {
				return p.outputJSON(map[string]any{
					"file":     config.ConfigPath(),
					"settings": settings,
					"projects": projects,
				})
			}
			p.line(ui.RenderAccent("# " + config.ConfigPath()))
			for _, key := range config.KnownKeys() {
				p.line(fmt.Sprintf("%s = %s", key, settings[key]))
			}
			for _, pm := range projects {
				p.line(fmt.Sprintf("project %s = %s", pm.Dir, pm.Key))
			}
			return nil
		},
	}

	projectCmd := &cobra.Command{
		Use:   "project <key>",
		Short: "Map the current directory (or --dir) to a Jira project key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveProject(opts.dir, args[0]); err != nil {
				return fmt.Errorf("setting project: %w", err)
			}
			dir, err := filepath.Abs(opts.dir)
			if err != nil {
				dir = opts.dir
			}
			p := newPrinter(cmd, opts)
			if p.json {
				return p.outputJSON(map[string]string{"dir": dir, "key": args[0]})
			}
			p.line(ui.RenderPass(fmt.Sprintf("Set project for %s = %s", dir, args[0])))
			return nil
		},
	}

	configCmd.AddCommand(setCmd, getCmd, showCmd, projectCmd)
	return configCmd
}

func lookupValue(key string) string {
	if listKeys[key] {
		return strings.Join(config.GetList(key), ", ")
	}
	return config.GetString(key)
}

// displayValue masks secrets, keeping only the last four characters.
func displayValue(key, value string) string {
	if !config.SecretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
