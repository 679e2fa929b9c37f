// Package jira queries a Jira instance for issues that are ready to merge and
// for the status of known issue keys.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/relm/internal/debug"
	"github.com/steveyegge/relm/internal/telemetry"
)

var log = debug.Component("jira")

const scopeName = "github.com/steveyegge/relm/jira"

// Issue represents a Jira issue from the search API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the projected fields of a Jira issue.
type IssueFields struct {
	Status *StatusField `json:"status"`
	Labels []string     `json:"labels"`
}

// StatusField represents a Jira issue status.
type StatusField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchResult represents a Jira JQL search response.
type SearchResult struct {
	StartAt       int      `json:"startAt"`
	MaxResults    int      `json:"maxResults"`
	Total         int      `json:"total"`
	Issues        []Issue  `json:"issues"`
	ErrorMessages []string `json:"errorMessages"`
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
}

// Auth schemes for the Authorization header.
const (
	SchemeBasic  = "basic"
	SchemeBearer = "bearer"
)

// DefaultPageSize is the maxResults sent with each search page.
const DefaultPageSize = 100

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL string
	// Token is the pre-shared credential placed verbatim after the scheme in
	// the Authorization header (for basic auth, base64 of "user:token").
	Token      string
	Scheme     string
	PageSize   int
	HTTPClient *http.Client

	inst     *telemetry.Instrument
	requests metric.Int64Counter
}

// NewClient creates a new Jira client. An empty scheme selects basic auth.
func NewClient(url, token, scheme string) *Client {
	inst := telemetry.NewInstrument(scopeName, "relm.jira")
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Token:    token,
		Scheme:   scheme,
		PageSize: DefaultPageSize,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		inst:     inst,
		requests: inst.Counter("requests", "Jira HTTP requests by response status"),
	}
}

// SearchIssues runs jql and returns all matching issues, following startAt
// pagination until total is reached.
//
// A non-2xx response fails with *AuthError, except a 400 that carries
// errorMessages, which (like a 2xx body with errorMessages) fails with
// *QueryError.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields ...string) (issues []Issue, err error) {
	if c.inst == nil {
		c.inst = telemetry.NewInstrument(scopeName, "relm.jira")
		c.requests = c.inst.Counter("requests", "Jira HTTP requests by response status")
	}
	ctx, span := c.inst.Start(ctx, "jira.search", attribute.Int("jira.fields", len(fields)))
	defer func() {
		span.SetAttributes(attribute.Int("jira.issues", len(issues)))
		span.Done(ctx, err)
	}()

	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	startAt := 0
	for {
		payload, err := json.Marshal(searchRequest{
			JQL:        jql,
			Fields:     fields,
			StartAt:    startAt,
			MaxResults: pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal search request: %w", err)
		}

		body, err := c.doRequest(ctx, http.MethodPost, c.URL+"/rest/api/latest/search", payload)
		if err != nil {
			return nil, err
		}

		var result SearchResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parse search response: %w", err)
		}
		if len(result.ErrorMessages) > 0 {
			return nil, &QueryError{Messages: result.ErrorMessages}
		}

		issues = append(issues, result.Issues...)

		if len(result.Issues) == 0 || startAt+len(result.Issues) >= result.Total {
			break
		}
		startAt += len(result.Issues)
	}

	log.Logf("search returned %d issues\n", len(issues))
	return issues, nil
}

// doRequest executes an authenticated HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.Token == "" {
		return nil, fmt.Errorf("jira auth token not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "relm/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	log.Logf("%s %s\n", method, apiURL)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.requests != nil {
		c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", strconv.Itoa(resp.StatusCode))))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusBadRequest {
			if msgs := errorMessages(respBody); len(msgs) > 0 {
				return nil, &QueryError{Messages: msgs}
			}
		}
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}

	return respBody, nil
}

// setAuth sets the Authorization header from the stored credential.
func (c *Client) setAuth(req *http.Request) {
	if strings.EqualFold(c.Scheme, SchemeBearer) {
		req.Header.Set("Authorization", "Bearer "+c.Token)
		return
	}
	req.Header.Set("Authorization", "Basic "+c.Token)
}

func errorMessages(body []byte) []string {
	var r struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil
	}
	return r.ErrorMessages
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
