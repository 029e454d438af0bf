// Package huly implements the System H (Huly issue tracker) client: a
// typed, retry-classified REST wrapper grounded directly on the teacher's
// internal/jira/client.go doRequest/classify shape — Huly, like Jira, is
// identifier-keyed (e.g. "PROJ-123") and exposes a plain REST API.
package huly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oculairmedia/hvbsync/internal/types"
)

// Issue is Huly's native issue wire shape.
type Issue struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Labels      []string  `json:"labels"`
	ParentIssue string    `json:"parentIssue"`
	CreatedOn   time.Time `json:"createdOn"`
	ModifiedOn  time.Time `json:"modifiedOn"`
}

// Project is Huly's native project wire shape.
type Project struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client provides HTTP access to a Huly instance.
type Client struct {
	URL        string
	APIToken   string
	HTTPClient *http.Client
}

// NewClient creates a new Huly client.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(baseURL, "/"),
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListProjects fetches every Huly project (C8 step 1, ~30s-cached by the caller).
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	body, err := c.doRequest(ctx, "GET", c.URL+"/api/projects", nil)
	if err != nil {
		return nil, err
	}
	var projects []Project
	if err := json.Unmarshal(body, &projects); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "ListProjects", fmt.Errorf("parse response: %w", err))
	}
	return projects, nil
}

// BulkListIssues fetches issues for several projects in one call per cohort
// (C8 step 2), requesting only the fields named in spec §4.7:
// identifier, title, status, priority, modifiedOn, parentIssue.
func (c *Client) BulkListIssues(ctx context.Context, projects []string, since *time.Time) (map[string][]Issue, error) {
	params := url.Values{
		"projects": {strings.Join(projects, ",")},
		"fields":   {"identifier,title,status,priority,modifiedOn,parentIssue"},
	}
	if since != nil {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}

	body, err := c.doRequest(ctx, "GET", c.URL+"/api/issues/bulk?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var result map[string][]Issue
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "BulkListIssues", fmt.Errorf("parse response: %w", err))
	}
	return result, nil
}

// GetIssue fetches a single Huly issue by identifier, returning (nil, nil)
// for a definitive 404 per spec §4.1's client contract.
func (c *Client) GetIssue(ctx context.Context, identifier string) (*Issue, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("%s/api/issues/%s", c.URL, url.PathEscape(identifier)), nil)
	if err != nil {
		if te, ok := err.(*types.TrackerError); ok && te.Kind == types.ErrKindNotFound {
			return nil, nil
		}
		return nil, err
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "GetIssue", fmt.Errorf("parse response: %w", err))
	}
	return &issue, nil
}

// FindByTitle performs the upstream title-scan fallback used only when the
// dedupe index (C3) has no mapping-first hit (spec §4.3).
func (c *Client) FindByTitle(ctx context.Context, project, title string) (*Issue, error) {
	params := url.Values{"project": {project}, "title": {title}}
	body, err := c.doRequest(ctx, "GET", c.URL+"/api/issues/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "FindByTitle", fmt.Errorf("parse response: %w", err))
	}
	if len(issues) == 0 {
		return nil, nil
	}
	return &issues[0], nil
}

// CreateIssue creates a new Huly issue under project.
func (c *Client) CreateIssue(ctx context.Context, project string, fields map[string]interface{}) (*Issue, error) {
	payload := map[string]interface{}{"project": project}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "CreateIssue", err)
	}
	body, err := c.doRequest(ctx, "POST", c.URL+"/api/issues", data)
	if err != nil {
		return nil, err
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "CreateIssue", fmt.Errorf("parse response: %w", err))
	}
	return &issue, nil
}

// PatchIssue applies only the changed fields to an existing issue (spec
// §4.7: "compute field diff; apply only changed fields").
func (c *Client) PatchIssue(ctx context.Context, identifier string, fields map[string]interface{}) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return types.NewTrackerError(types.ErrKindValidation, "PatchIssue", err)
	}
	_, err = c.doRequest(ctx, "PATCH", fmt.Sprintf("%s/api/issues/%s", c.URL, url.PathEscape(identifier)), data)
	return err
}

// DeleteIssue deletes a Huly issue by identifier.
func (c *Client) DeleteIssue(ctx context.Context, identifier string) error {
	_, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("%s/api/issues/%s", c.URL, url.PathEscape(identifier)), nil)
	return err
}

// SetParent sets or clears (parentIdentifier == nil) an issue's parent.
func (c *Client) SetParent(ctx context.Context, identifier string, parentIdentifier *string) error {
	payload := map[string]interface{}{"parentIssue": parentIdentifier}
	data, _ := json.Marshal(payload)
	_, err := c.doRequest(ctx, "PATCH", fmt.Sprintf("%s/api/issues/%s", c.URL, url.PathEscape(identifier)), data)
	return err
}

// doRequest executes an authenticated HTTP request, classifying the response
// status per spec §4.1 before returning: retryable (5xx, timeout, connection
// refused) vs non-retryable (400, 401, 403, 404, 422).
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, types.NewTrackerError(types.ErrKindValidation, method, types.ErrNotConfigured)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, method, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hvbsync-huly-client/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, types.NewTrackerError(types.ErrKindTransient, method, fmt.Errorf("transport: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTrackerError(types.ErrKindTransient, method, fmt.Errorf("read response: %w", err))
	}

	return respBody, classifyStatus(method, resp.StatusCode, respBody)
}

// classifyStatus implements the client-boundary error classification of
// spec §4.1/§7.
func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return types.NewTrackerError(types.ErrKindNotFound, op, fmt.Errorf("404: %s", body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewTrackerError(types.ErrKindAuthN, op, fmt.Errorf("%d: %s", status, body))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return types.NewTrackerError(types.ErrKindValidation, op, fmt.Errorf("%d: %s", status, body))
	case status == http.StatusConflict:
		return types.NewTrackerError(types.ErrKindConflict, op, fmt.Errorf("409: %s", body))
	case status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return types.NewTrackerError(types.ErrKindTransient, op, fmt.Errorf("%d: %s", status, body))
	default:
		return types.NewTrackerError(types.ErrKindValidation, op, fmt.Errorf("unexpected status %d: %s", status, body))
	}
}
