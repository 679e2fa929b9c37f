// Package debug provides verbose and quiet gated output for relm.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("RELM_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex

	// stderr is swapped in tests.
	stderr io.Writer = os.Stderr
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(stderr, format, args...)
}

// Component is a debug logger that prefixes every line with a component name.
type Component string

// Logf writes a "[component] ..." line when debug output is enabled.
func (c Component) Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	Logf("["+string(c)+"] "+format, args...)
}
