package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/netagent/netagent/core/types"
)

// Agent describes a specialist of the remote team.
type Agent struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// Ask sends a request to the supervisor. A failed request comes back as an
// error carrying the server message.
func (c *Client) Ask(ctx context.Context, input string) (string, error) {
	var out types.AgentResponse
	if err := c.do(ctx, http.MethodPost, "/agent", types.AgentRequest{InputText: input}, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.OutputText, nil
}

// Alert posts a monitoring alert to the webhook. Extra keys are sent along
// with the title and message.
func (c *Client) Alert(ctx context.Context, title, message string, extra map[string]any) error {
	body := map[string]any{}
	for k, v := range extra {
		body[k] = v
	}
	body["title"] = title
	body["message"] = message
	return c.do(ctx, http.MethodPost, "/webhook", body, nil)
}

func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var out struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// Healthy reports whether the server answers /healthz.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil) == nil
}
