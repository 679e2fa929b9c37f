// Package resolver matches tracker issue keys to remote branch names.
package resolver

import (
	"slices"

	"github.com/steveyegge/relm/internal/git"
)

// Result is the split of a key set. Every input key lands in exactly one of
// the two lists; both are sorted and free of duplicates.
type Result struct {
	Matched   []string `json:"matched"`
	Unmatched []string `json:"unmatched"`
}

// Partition splits keys into those with a remote branch of exactly the same
// name and those without one. The comparison is case-sensitive.
func Partition(keys []string, branches []git.BranchRef) Result {
	names := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		names[b.Name] = struct{}{}
	}

	res := Result{Matched: []string{}, Unmatched: []string{}}
	for _, key := range dedupe(keys) {
		if _, ok := names[key]; ok {
			res.Matched = append(res.Matched, key)
		} else {
			res.Unmatched = append(res.Unmatched, key)
		}
	}
	return res
}

// BranchNames returns the names of branches in their original order.
func BranchNames(branches []git.BranchRef) []string {
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	return names
}

func dedupe(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
