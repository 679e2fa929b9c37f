package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steveyegge/relm/internal/ui"
)

// TestMain isolates the CLI tests from the user's config file, RELM_*
// environment and terminal.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "relm-cli-tests-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("HOME", tmp)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg-config"))
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && (strings.HasPrefix(name, "RELM_") || strings.HasPrefix(name, "OTEL_")) {
			_ = os.Unsetenv(name)
		}
	}
	_ = os.Setenv("NO_COLOR", "1")
	_ = os.Setenv("RELM_NO_EMOJI", "1")
	ui.ApplyColorProfile()

	code := m.Run()

	_ = os.RemoveAll(tmp)
	os.Exit(code)
}
