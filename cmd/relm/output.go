package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/ui"
)

// printer writes user-facing output. In JSON mode the streaming lines are
// suppressed and a single document is written at the end.
type printer struct {
	out  io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command, opts *options) *printer {
	return &printer{out: cmd.OutOrStdout(), json: opts.jsonOutput}
}

// header prints a section header such as "---merge to release-1---".
func (p *printer) header(title string) {
	if p.json || debug.IsQuiet() {
		return
	}
	fmt.Fprintln(p.out, ui.RenderCategory(title))
}

func (p *printer) line(s string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, s)
}

// outputJSON writes v as indented JSON.
func (p *printer) outputJSON(v any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
