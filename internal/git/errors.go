package git

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRepository indicates the directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrNoRemote indicates the repository has no usable remote configured.
	ErrNoRemote = errors.New("repository has no remote configured")
)

// RemoteRefNotFoundError is returned when a local branch must be created from
// a remote ref that does not exist and no base was given.
type RemoteRefNotFoundError struct {
	Remote string
	Branch string
}

func (e *RemoteRefNotFoundError) Error() string {
	if e.Remote == "" {
		return fmt.Sprintf("branch %s not found: no remote configured", e.Branch)
	}
	return fmt.Sprintf("remote ref %s/%s not found", e.Remote, e.Branch)
}

// CommandError describes a failed git invocation. Stdout is kept because
// merge and pull report conflicts there rather than on stderr.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Stdout   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	switch {
	case e.Stderr != "":
		msg += ": " + e.Stderr
	case e.Stdout != "":
		msg += ": " + e.Stdout
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }
