package resolver

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/steveyegge/relm/internal/git"
)

func refs(names ...string) []git.BranchRef {
	out := make([]git.BranchRef, 0, len(names))
	for _, n := range names {
		out = append(out, git.BranchRef{Name: n})
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name          string
		keys          []string
		branches      []string
		wantMatched   []string
		wantUnmatched []string
	}{
		{
			name:          "mixed",
			keys:          []string{"PROJ-3", "PROJ-1", "PROJ-2"},
			branches:      []string{"master", "PROJ-1", "PROJ-3"},
			wantMatched:   []string{"PROJ-1", "PROJ-3"},
			wantUnmatched: []string{"PROJ-2"},
		},
		{
			name:          "no keys",
			keys:          nil,
			branches:      []string{"PROJ-1"},
			wantMatched:   []string{},
			wantUnmatched: []string{},
		},
		{
			name:          "no branches",
			keys:          []string{"PROJ-2", "PROJ-1"},
			wantMatched:   []string{},
			wantUnmatched: []string{"PROJ-1", "PROJ-2"},
		},
		{
			name:          "duplicates collapse",
			keys:          []string{"PROJ-1", "PROJ-1", "PROJ-9", "PROJ-9"},
			branches:      []string{"PROJ-1"},
			wantMatched:   []string{"PROJ-1"},
			wantUnmatched: []string{"PROJ-9"},
		},
		{
			name:          "case sensitive",
			keys:          []string{"PROJ-1"},
			branches:      []string{"proj-1"},
			wantMatched:   []string{},
			wantUnmatched: []string{"PROJ-1"},
		},
		{
			name:          "prefix is not a match",
			keys:          []string{"PROJ-1"},
			branches:      []string{"PROJ-10", "feature/PROJ-1"},
			wantMatched:   []string{},
			wantUnmatched: []string{"PROJ-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.keys, refs(tt.branches...))
			assert.Equal(t, tt.wantMatched, got.Matched)
			assert.Equal(t, tt.wantUnmatched, got.Unmatched)
		})
	}
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	keys := []string{"B", "A", "B"}
	_ = Partition(keys, refs("A"))
	require.Equal(t, []string{"B", "A", "B"}, keys)
}

func TestBranchNames(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, BranchNames(refs("b", "a")))
	assert.Empty(t, BranchNames(nil))
}

func TestPartitionIsStrictSplit(t *testing.T) {
	alphabet := []string{"PROJ-1", "PROJ-2", "PROJ-3", "PROJ-10", "master", "main", "proj-1"}
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOf(rapid.SampledFrom(alphabet)).Draw(t, "keys")
		branchNames := rapid.SliceOf(rapid.SampledFrom(alphabet)).Draw(t, "branches")

		got := Partition(keys, refs(branchNames...))

		if !slices.IsSorted(got.Matched) || !slices.IsSorted(got.Unmatched) {
			t.Fatalf("outputs not sorted: %v / %v", got.Matched, got.Unmatched)
		}
		if len(slices.Compact(slices.Clone(got.Matched))) != len(got.Matched) {
			t.Fatalf("matched has duplicates: %v", got.Matched)
		}
		if len(slices.Compact(slices.Clone(got.Unmatched))) != len(got.Unmatched) {
			t.Fatalf("unmatched has duplicates: %v", got.Unmatched)
		}

		for _, k := range got.Matched {
			if slices.Contains(got.Unmatched, k) {
				t.Fatalf("key %q in both lists", k)
			}
			if !slices.Contains(branchNames, k) {
				t.Fatalf("matched key %q has no branch", k)
			}
		}
		for _, k := range got.Unmatched {
			if slices.Contains(branchNames, k) {
				t.Fatalf("unmatched key %q has a branch", k)
			}
		}

		union := append(slices.Clone(got.Matched), got.Unmatched...)
		slices.Sort(union)
		want := slices.Compact(slices.Sorted(slices.Values(keys)))
		if !slices.Equal(union, want) {
			t.Fatalf("union %v != distinct keys %v", union, want)
		}
	})
}
