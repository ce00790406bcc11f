package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/netagent/netagent/core/scheduler"
)

type TaskRequest struct {
	Name          string                 `json:"name,omitempty"`
	Prompt        string                 `json:"prompt"`
	ScheduleType  scheduler.ScheduleType `json:"schedule_type"`
	ScheduleValue string                 `json:"schedule_value"`
}

func taskPath(id string, suffix string) string {
	return "/api/tasks/" + url.PathEscape(id) + suffix
}

func (c *Client) ListTasks(ctx context.Context) ([]scheduler.Task, error) {
	var tasks []scheduler.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*scheduler.Task, error) {
	var task scheduler.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*scheduler.Task, error) {
	var task scheduler.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id, ""), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) TaskRuns(ctx context.Context, id string, limit int) ([]scheduler.TaskRun, error) {
	var runs []scheduler.TaskRun
	path := taskPath(id, "/runs")
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil)
}

func (c *Client) PauseTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, taskPath(id, "/pause"), nil, nil)
}

func (c *Client) ResumeTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, taskPath(id, "/resume"), nil, nil)
}

// TriggerTask starts a task immediately on the server.
func (c *Client) TriggerTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, taskPath(id, "/run"), nil, nil)
}
