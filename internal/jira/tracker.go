package jira

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// Default status and label sets.
var (
	DefaultMainlineStatuses = []string{"Tested In Branch"}
	DefaultReleaseStatuses  = []string{"Tested In Branch", "Ready For QA", "In Testing"}
	DefaultExcludeLabels    = []string{"wait"}
)

// Settings selects what the gateway queries.
type Settings struct {
	Project string
	// MainlineStatuses is the status set for merges into mainline. It should
	// be the stricter of the two sets.
	MainlineStatuses []string
	// ReleaseStatuses is the status set for merges into a named release.
	ReleaseStatuses []string
	ExcludeLabels   []string
}

// IssueRecord is a normalized issue with its status.
type IssueRecord struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

// Searcher runs a JQL search. *Client implements it.
type Searcher interface {
	SearchIssues(ctx context.Context, jql string, fields ...string) ([]Issue, error)
}

// Gateway answers the two questions relm asks Jira.
type Gateway struct {
	search   Searcher
	settings Settings
}

// NewGateway returns a Gateway over s. Empty status and label sets fall back
// to the defaults.
func NewGateway(s Searcher, settings Settings) *Gateway {
	if len(settings.MainlineStatuses) == 0 {
		settings.MainlineStatuses = DefaultMainlineStatuses
	}
	if len(settings.ReleaseStatuses) == 0 {
		settings.ReleaseStatuses = DefaultReleaseStatuses
	}
	if settings.ExcludeLabels == nil {
		settings.ExcludeLabels = DefaultExcludeLabels
	}
	return &Gateway{search: s, settings: settings}
}

// Settings returns the effective settings.
func (g *Gateway) Settings() Settings { return g.settings }

// QueryOpenIssueKeys returns the keys of issues ready to integrate. An empty
// release targets mainline: the stricter status set applies and issues with
// a fix version are skipped.
//
// *AuthError is returned as-is. On *QueryError the result is empty and the
// error is returned alongside so the caller can surface the messages.
func (g *Gateway) QueryOpenIssueKeys(ctx context.Context, release string) ([]string, error) {
	statuses := g.settings.ReleaseStatuses
	if release == "" {
		statuses = g.settings.MainlineStatuses
	}
	jql := OpenIssuesJQL(g.settings.Project, statuses, g.settings.ExcludeLabels, release == "")

	issues, err := g.search.SearchIssues(ctx, jql, "key")
	if err != nil {
		return emptyOnQueryError[string](err)
	}

	keys := make([]string, 0, len(issues))
	for _, issue := range issues {
		keys = append(keys, issue.Key)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// QueryStatusesByKeys returns the status of each known key, ordered by
// status and then key. An empty key set sends no request.
func (g *Gateway) QueryStatusesByKeys(ctx context.Context, keys []string) ([]IssueRecord, error) {
	if len(keys) == 0 {
		return []IssueRecord{}, nil
	}

	issues, err := g.search.SearchIssues(ctx, StatusByKeysJQL(g.settings.Project, keys), "status")
	if err != nil {
		return emptyOnQueryError[IssueRecord](err)
	}

	records := make([]IssueRecord, 0, len(issues))
	for _, issue := range issues {
		rec := IssueRecord{Key: issue.Key}
		if issue.Fields.Status != nil {
			rec.Status = issue.Fields.Status.Name
		}
		records = append(records, rec)
	}
	slices.SortStableFunc(records, func(a, b IssueRecord) int {
		if c := strings.Compare(a.Status, b.Status); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return records, nil
}

func emptyOnQueryError[T any](err error) ([]T, error) {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return []T{}, err
	}
	return nil, err
}
