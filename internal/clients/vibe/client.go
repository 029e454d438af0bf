// Package vibe implements the System V (Vibe Kanban) client: a UUID-keyed
// REST+SSE board. The REST half follows the same doRequest/classify shape as
// internal/clients/huly (itself grounded on the teacher's internal/jira/
// client.go); the SSE half is new (sse.go) since Vibe is the only one of the
// three systems with a push stream.
package vibe

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

// Task is Vibe Kanban's native record shape.
type Task struct {
	ID          string    `json:"id"` // UUID
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Parent      string    `json:"parent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Client provides HTTP+SSE access to a Vibe Kanban instance.
type Client struct {
	URL        string
	APIToken   string
	HTTPClient *http.Client
}

// NewClient creates a new Vibe Kanban client.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(baseURL, "/"),
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	body, err := c.doRequest(ctx, "GET", c.URL+"/api/projects", nil)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "ListProjects", err)
	}
	return ids, nil
}

func (c *Client) ListTasks(ctx context.Context, projectID string, since *time.Time) ([]Task, error) {
	params := url.Values{"project_id": {projectID}}
	if since != nil {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	body, err := c.doRequest(ctx, "GET", c.URL+"/api/tasks?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "ListTasks", err)
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("%s/api/tasks/%s", c.URL, url.PathEscape(id)), nil)
	if err != nil {
		if te, ok := err.(*types.TrackerError); ok && te.Kind == types.ErrKindNotFound {
			return nil, nil
		}
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "GetTask", err)
	}
	return &task, nil
}

func (c *Client) FindByTitle(ctx context.Context, projectID, title string) (*Task, error) {
	params := url.Values{"project_id": {projectID}, "title": {title}}
	body, err := c.doRequest(ctx, "GET", c.URL+"/api/tasks/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "FindByTitle", err)
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

func (c *Client) CreateTask(ctx context.Context, projectID string, fields map[string]interface{}) (*Task, error) {
	payload := map[string]interface{}{"project_id": projectID}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "CreateTask", err)
	}
	body, err := c.doRequest(ctx, "POST", c.URL+"/api/tasks", data)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, types.NewTrackerError(types.ErrKindValidation, "CreateTask", err)
	}
	return &task, nil
}

func (c *Client) PatchTask(ctx context.Context, id string, fields map[string]interface{}) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return types.NewTrackerError(types.ErrKindValidation, "PatchTask", err)
	}
	_, err = c.doRequest(ctx, "PATCH", fmt.Sprintf("%s/api/tasks/%s", c.URL, url.PathEscape(id)), data)
	return err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("%s/api/tasks/%s", c.URL, url.PathEscape(id)), nil)
	return err
}

func (c *Client) SetParent(ctx context.Context, id string, parentID *string) error {
	payload := map[string]interface{}{"parent": parentID}
	data, _ := json.Marshal(payload)
	_, err := c.doRequest(ctx, "PATCH", fmt.Sprintf("%s/api/tasks/%s", c.URL, url.PathEscape(id)), data)
	return err
}

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

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return respBody, types.NewTrackerError(types.ErrKindNotFound, method, fmt.Errorf("404: %s", respBody))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return respBody, types.NewTrackerError(types.ErrKindAuthN, method, fmt.Errorf("%d: %s", resp.StatusCode, respBody))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return respBody, types.NewTrackerError(types.ErrKindValidation, method, fmt.Errorf("%d: %s", resp.StatusCode, respBody))
	case resp.StatusCode == http.StatusConflict:
		return respBody, types.NewTrackerError(types.ErrKindConflict, method, fmt.Errorf("409: %s", respBody))
	case resp.StatusCode >= 500:
		return respBody, types.NewTrackerError(types.ErrKindTransient, method, fmt.Errorf("%d: %s", resp.StatusCode, respBody))
	default:
		return respBody, types.NewTrackerError(types.ErrKindValidation, method, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody))
	}
}
