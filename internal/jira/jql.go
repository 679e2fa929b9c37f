package jira

import (
	"strings"
)

// Quote renders s as a JQL string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return strings.Join(quoted, ", ")
}

// OpenIssuesJQL selects project issues in one of statuses. Issues labelled
// with any of excludeLabels are dropped unless they carry no labels at all.
// With noFixVersion only issues without a fix version are kept.
func OpenIssuesJQL(project string, statuses, excludeLabels []string, noFixVersion bool) string {
	var b strings.Builder
	b.WriteString("project = ")
	b.WriteString(Quote(project))
	b.WriteString(" AND status in (")
	b.WriteString(quoteList(statuses))
	b.WriteString(")")
	if len(excludeLabels) > 0 {
		b.WriteString(" AND (labels not in (")
		b.WriteString(quoteList(excludeLabels))
		b.WriteString(") OR labels is EMPTY)")
	}
	if noFixVersion {
		b.WriteString(" AND fixVersion is EMPTY")
	}
	return b.String()
}

// StatusByKeysJQL selects the given issue keys within project.
func StatusByKeysJQL(project string, keys []string) string {
	return "project = " + Quote(project) + " AND issuekey in (" + quoteList(keys) + ")"
}
