package merge

import (
	"encoding/json"

	"github.com/steveyegge/relm/internal/git"
)

// Result is the outcome of processing one issue. Exactly one of Outcome or
// Err is meaningful.
type Result struct {
	Key     string
	Outcome git.Outcome
	// Deleted is true when the local issue branch was removed afterwards.
	Deleted bool
	Err     error
	// CleanupErr collects best-effort cleanup failures (abort, restore,
	// branch deletion). It never changes the outcome.
	CleanupErr error
}

// Label is the outcome word used in output and metrics.
func (r Result) Label() string {
	if r.Err != nil {
		return "error"
	}
	return r.Outcome.String()
}

// Line renders the result as a single output line, e.g. "PROJ-1 merged".
func (r Result) Line() string {
	if r.Err != nil {
		return r.Key + " error: " + r.Err.Error()
	}
	return r.Key + " " + r.Outcome.String()
}

// MarshalJSON encodes errors as strings.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Key          string `json:"key"`
		Outcome      string `json:"outcome"`
		Deleted      bool   `json:"deleted"`
		Error        string `json:"error,omitempty"`
		CleanupError string `json:"cleanup_error,omitempty"`
	}{
		Key:     r.Key,
		Outcome: r.Label(),
		Deleted: r.Deleted,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.CleanupErr != nil {
		out.CleanupError = r.CleanupErr.Error()
	}
	return json.Marshal(out)
}

// Report folds the results of one run.
type Report struct {
	RunID       string   `json:"run_id,omitempty"`
	Release     string   `json:"release,omitempty"`
	Mainline    string   `json:"mainline"`
	Results     []Result `json:"results"`
	Interrupted bool     `json:"interrupted,omitempty"`
}

// Counts tallies results by Label.
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, res := range r.Results {
		counts[res.Label()]++
	}
	return counts
}

// Result returns the result for key.
func (r *Report) Result(key string) (Result, bool) {
	for _, res := range r.Results {
		if res.Key == key {
			return res, true
		}
	}
	return Result{}, false
}
