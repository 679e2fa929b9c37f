package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectMapping binds a working directory to a tracker project key.
type ProjectMapping struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Key string `mapstructure:"key" yaml:"key" json:"key"`
}

// Tracker holds the three resolved values needed to talk to Jira.
type Tracker struct {
	URL     string
	Token   string
	Scheme  string
	Project string
}

// MissingError reports a required setting with no value.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s not configured (run 'relm config set %s <value>' or set %s)", e.Key, e.Key, EnvName(e.Key))
}

// Projects returns the configured directory mappings.
func Projects() []ProjectMapping {
	var projects []ProjectMapping
	if err := ensure().UnmarshalKey(KeyProjects, &projects); err != nil {
		return nil
	}
	return projects
}

// ProjectFor returns the project key for dir. RELM_JIRA_PROJECT wins; then
// the mapping of the closest enclosing directory; then jira.project from
// the config file.
func ProjectFor(dir string) string {
	if p := strings.TrimSpace(os.Getenv(EnvName(KeyJiraProject))); p != "" {
		return p
	}

	if abs, err := filepath.Abs(dir); err == nil {
		byDir := make(map[string]string)
		for _, p := range Projects() {
			if p.Dir != "" && p.Key != "" {
				byDir[filepath.Clean(p.Dir)] = p.Key
			}
		}
		for d := abs; ; d = filepath.Dir(d) {
			if key, ok := byDir[d]; ok {
				return key
			}
			if d == filepath.Dir(d) {
				break
			}
		}
	}

	return GetString(KeyJiraProject)
}

// ResolveTracker returns the tracker settings for dir, or *MissingError
// naming the first unset value.
func ResolveTracker(dir string) (Tracker, error) {
	t := Tracker{
		URL:     GetString(KeyJiraURL),
		Token:   GetString(KeyJiraAuth),
		Scheme:  GetString(KeyJiraAuthScheme),
		Project: ProjectFor(dir),
	}
	switch {
	case t.URL == "":
		return t, &MissingError{Key: KeyJiraURL}
	case t.Token == "":
		return t, &MissingError{Key: KeyJiraAuth}
	case t.Project == "":
		return t, &MissingError{Key: KeyJiraProject}
	}
	return t, nil
}
