// Package config loads relm's user configuration through a viper singleton.
//
// Values come, in increasing precedence, from built-in defaults, the user
// config file ($XDG_CONFIG_HOME/relm/config.yaml), RELM_* environment
// variables and runtime overrides applied with Set (command-line flags).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// explicitPath is the --config override, applied by SetConfigPath.
var explicitPath string

// Keys understood by relm. Only these may be written with SaveValue.
const (
	KeyJiraURL          = "jira.url"
	KeyJiraAuth         = "jira.auth"
	KeyJiraAuthScheme   = "jira.auth-scheme"
	KeyJiraProject      = "jira.project"
	KeyMainlineStatuses = "jira.statuses.mainline"
	KeyReleaseStatuses  = "jira.statuses.release"
	KeyExcludeLabels    = "jira.exclude-labels"
	KeyGitRemote        = "git.remote"
	KeyGitMainline      = "git.mainline"
	KeyTraceHashLength  = "trace.hash-length"
	KeyTelemetryEnabled = "telemetry.enabled"
	KeyTelemetryStdout  = "telemetry.stdout"
	KeyTelemetryOTLP    = "telemetry.endpoint"
	KeyTelemetryMetrics = "telemetry.metrics-endpoint"
	KeyServiceName      = "telemetry.service-name"
	KeyJSON             = "json"
	KeyVerbose          = "verbose"
	KeyQuiet            = "quiet"
	KeyProjects         = "projects"
)

var knownKeys = map[string]bool{
	KeyJiraURL:          true,
	KeyJiraAuth:         true,
	KeyJiraAuthScheme:   true,
	KeyJiraProject:      true,
	KeyMainlineStatuses: true,
	KeyReleaseStatuses:  true,
	KeyExcludeLabels:    true,
	KeyGitRemote:        true,
	KeyGitMainline:      true,
	KeyTraceHashLength:  true,
	KeyTelemetryEnabled: true,
	KeyTelemetryStdout:  true,
	KeyTelemetryOTLP:    true,
	KeyTelemetryMetrics: true,
	KeyServiceName:      true,
	KeyJSON:             true,
	KeyVerbose:          true,
	KeyQuiet:            true,
}

// IsKnownKey reports whether key is a scalar setting relm reads.
func IsKnownKey(key string) bool {
	return knownKeys[key]
}

// KnownKeys returns the scalar setting names in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SecretKeys are masked by relm config show.
var SecretKeys = map[string]bool{KeyJiraAuth: true}

// Initialize (re)builds the viper instance and reads the user config file
// when one exists. A missing file is not an error.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	v.SetDefault(KeyJiraAuthScheme, "basic")
	v.SetDefault(KeyMainlineStatuses, "Tested In Branch")
	v.SetDefault(KeyReleaseStatuses, "Tested In Branch, Ready For QA, In Testing")
	v.SetDefault(KeyExcludeLabels, "wait")
	v.SetDefault(KeyTraceHashLength, 8)
	v.SetDefault(KeyTelemetryEnabled, false)
	v.SetDefault(KeyTelemetryStdout, false)
	v.SetDefault(KeyServiceName, "relm")
	v.SetDefault(KeyJSON, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyQuiet, false)

	v.SetEnvPrefix("RELM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The standard OTel variables back the relm ones.
	_ = v.BindEnv(KeyTelemetryOTLP, EnvName(KeyTelemetryOTLP), "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv(KeyTelemetryMetrics, EnvName(KeyTelemetryMetrics), "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	_ = v.BindEnv(KeyServiceName, EnvName(KeyServiceName), "OTEL_SERVICE_NAME")

	path := ConfigPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// SetConfigPath overrides the config file location. Call before Initialize.
func SetConfigPath(path string) {
	explicitPath = path
}

// ConfigPath returns the user config file location: --config, then
// RELM_CONFIG, then $XDG_CONFIG_HOME/relm/config.yaml, then
// ~/.config/relm/config.yaml.
func ConfigPath() string {
	if explicitPath != "" {
		return explicitPath
	}
	if p := os.Getenv("RELM_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "relm", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "relm", "config.yaml")
}

// ResetForTesting clears the viper instance and the path override.
func ResetForTesting() {
	v = nil
	explicitPath = ""
}

func ensure() *viper.Viper {
	if v == nil {
		_ = Initialize()
	}
	return v
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	return strings.TrimSpace(ensure().GetString(key))
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	return ensure().GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	return ensure().GetInt(key)
}

// GetList retrieves a list value. A YAML sequence is used as-is; a string is
// split on commas so names containing spaces survive
// (RELM_JIRA_EXCLUDE_LABELS="wait,blocked").
func GetList(key string) []string {
	raw := ensure().Get(key)
	var items []string
	switch val := raw.(type) {
	case nil:
		return nil
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = strings.Split(fmt.Sprint(val), ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Set applies a runtime override (e.g. from a flag). It is not persisted.
func Set(key string, value any) {
	ensure().Set(key, value)
}

// AllSettings returns the merged settings.
func AllSettings() map[string]any {
	return ensure().AllSettings()
}

// EnvName returns the environment variable bound to key.
func EnvName(key string) string {
	return "RELM_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
