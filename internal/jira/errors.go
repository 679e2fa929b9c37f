package jira

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthError means Jira refused the request. It is fatal for the whole run.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("jira: access denied (%d %s)", e.StatusCode, http.StatusText(e.StatusCode))
}

// QueryError carries the errorMessages Jira returned for a query. The failing
// call yields no results; the run continues.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "jira: query failed: " + strings.Join(e.Messages, "; ")
}
