package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/relm/internal/git"
)

// fakeVCS models one checked-out branch and a merge-in-progress flag.
type fakeVCS struct {
	mainline string
	current  string
	local    map[string]bool
	remote   map[string]bool

	// outcomes is keyed by "target<-source".
	outcomes   map[string]git.Outcome
	mergeErrs  map[string]error
	ensureErrs map[string]error
	deleteErr  error
	abortErr   error

	// onMerge runs before a merge returns, e.g. to cancel the context.
	onMerge func()

	inProgress bool
	deleted    []string
	calls      []string
}

func newFakeVCS(remote ...string) *fakeVCS {
	f := &fakeVCS{
		mainline:   "master",
		current:    "master",
		local:      map[string]bool{"master": true},
		remote:     map[string]bool{},
		outcomes:   map[string]git.Outcome{},
		mergeErrs:  map[string]error{},
		ensureErrs: map[string]error{},
	}
	for _, r := range remote {
		f.remote[r] = true
	}
	return f
}

func (f *fakeVCS) Mainline() string { return f.mainline }

func (f *fakeVCS) Checkout(_ context.Context, name string) error {
	f.calls = append(f.calls, "checkout "+name)
	if f.inProgress {
		return errors.New("cannot checkout during merge")
	}
	if !f.local[name] {
		return fmt.Errorf("checkout %s: no such branch", name)
	}
	f.current = name
	return nil
}

func (f *fakeVCS) EnsureLocalBranch(_ context.Context, name, base string) (git.LocalBranch, error) {
	f.calls = append(f.calls, "ensure "+name)
	if err := f.ensureErrs[name]; err != nil {
		return git.LocalBranch{}, err
	}
	if f.local[name] {
		f.current = name
		return git.LocalBranch{Name: name}, nil
	}
	if f.remote[name] {
		f.local[name] = true
		return git.LocalBranch{Name: name, Upstream: "origin/" + name, Created: true}, nil
	}
	if base != "" {
		f.local[name] = true
		return git.LocalBranch{Name: name, Created: true}, nil
	}
	return git.LocalBranch{}, &git.RemoteRefNotFoundError{Remote: "origin", Branch: name}
}

func (f *fakeVCS) Merge(_ context.Context, source string) (git.Outcome, error) {
	key := f.current + "<-" + source
	f.calls = append(f.calls, "merge "+key)
	if f.onMerge != nil {
		f.onMerge()
	}
	if err := f.mergeErrs[key]; err != nil {
		return 0, err
	}
	outcome, ok := f.outcomes[key]
	if !ok {
		outcome = git.Merged
	}
	if outcome == git.Conflict {
		f.inProgress = true
	}
	return outcome, nil
}

func (f *fakeVCS) MergeInProgress(context.Context) bool { return f.inProgress }

func (f *fakeVCS) AbortMerge(context.Context) error {
	f.calls = append(f.calls, "abort")
	if f.abortErr != nil {
		return f.abortErr
	}
	f.inProgress = false
	return nil
}

func (f *fakeVCS) HardReset(context.Context) error {
	f.calls = append(f.calls, "reset")
	f.inProgress = false
	return nil
}

func (f *fakeVCS) DeleteBranch(_ context.Context, name string, force bool) error {
	f.calls = append(f.calls, fmt.Sprintf("delete %s force=%v", name, force))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.current == name {
		return errors.New("cannot delete the checked-out branch")
	}
	delete(f.local, name)
	f.deleted = append(f.deleted, name)
	return nil
}
