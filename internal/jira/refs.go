package jira

import (
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*-[0-9]+$`)

// BrowseURL returns the web URL of an issue.
func BrowseURL(jiraURL, key string) string {
	if jiraURL == "" {
		return ""
	}
	return strings.TrimSuffix(jiraURL, "/") + "/browse/" + key
}

// ExtractKey returns the issue key from a browse URL such as
// "https://company.atlassian.net/browse/PROJ-123". Any other input is
// returned trimmed, so bare keys pass through unchanged.
func ExtractKey(ref string) string {
	ref = strings.TrimSpace(ref)
	idx := strings.LastIndex(ref, "/browse/")
	if idx == -1 {
		return ref
	}
	key := ref[idx+len("/browse/"):]
	if i := strings.IndexAny(key, "?#/"); i >= 0 {
		key = key[:i]
	}
	return key
}

// LooksLikeKey reports whether name has the shape of an issue key
// (PROJECT-123). Branches such as "master" or "release-1.4" do not.
func LooksLikeKey(name string) bool {
	return keyPattern.MatchString(name)
}
