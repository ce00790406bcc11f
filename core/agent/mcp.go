package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// MCPServer is a remote MCP server. Transport is "sse" (default) or
// "streamable".
type MCPServer struct {
	URL       string `json:"url" yaml:"url" koanf:"url"`
	Token     string `json:"token" yaml:"token" koanf:"token"`
	Transport string `json:"transport" yaml:"transport" koanf:"transport"`
}

// MCPSTDIOServer is an MCP server spawned as a subprocess.
type MCPSTDIOServer struct {
	Args []string `json:"args" yaml:"args" koanf:"args"`
	Env  []string `json:"env" yaml:"env" koanf:"env"`
	Cmd  string   `json:"cmd" yaml:"cmd" koanf:"cmd"`
}

type ToolInputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// bearerTokenRoundTripper injects a bearer token into HTTP requests
type bearerTokenRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (rt *bearerTokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.token != "" {
		req.Header.Set("Authorization", "Bearer "+rt.token)
	}
	return rt.base.RoundTrip(req)
}

func newBearerTokenRoundTripper(token string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTokenRoundTripper{
		token: token,
		base:  base,
	}
}

func newMCPClient() *mcp.Client {
	return mcp.NewClient(&mcp.Implementation{Name: "netagent", Version: "v1.0.0"}, nil)
}

func (a *Agent) initMCPActions() error {
	a.closeMCPSessions()

	client := newMCPClient()
	var errs []error

	for _, mcpServer := range a.options.mcpServers {
		httpclient := &http.Client{
			Timeout:   360 * time.Second,
			Transport: newBearerTokenRoundTripper(mcpServer.Token, http.DefaultTransport),
		}

		var transport mcp.Transport
		switch mcpServer.Transport {
		case "streamable", "http":
			transport = &mcp.StreamableClientTransport{HTTPClient: httpclient, Endpoint: mcpServer.URL}
		default:
			transport = &mcp.SSEClientTransport{HTTPClient: httpclient, Endpoint: mcpServer.URL}
		}

		session, err := client.Connect(a.context, transport, nil)
		if err != nil {
			xlog.Error("Failed to connect to MCP server", "agent", a.Name(), "server", mcpServer.URL, "error", err.Error())
			errs = append(errs, fmt.Errorf("mcp server %s: %w", mcpServer.URL, err))
			continue
		}
		a.mcpSessions = append(a.mcpSessions, session)
	}

	for _, mcpStdioServer := range a.options.mcpStdioServers {
		command := exec.Command(mcpStdioServer.Cmd, mcpStdioServer.Args...)
		command.Env = os.Environ()
		command.Env = append(command.Env, mcpStdioServer.Env...)

		session, err := client.Connect(a.context, &mcp.CommandTransport{Command: command}, nil)
		if err != nil {
			xlog.Error("Failed to connect to MCP server", "agent", a.Name(), "cmd", mcpStdioServer.Cmd, "error", err.Error())
			errs = append(errs, fmt.Errorf("mcp command %s: %w", mcpStdioServer.Cmd, err))
			continue
		}
		a.mcpSessions = append(a.mcpSessions, session)
	}

	for _, transport := range a.options.mcpTransports {
		session, err := client.Connect(a.context, transport, nil)
		if err != nil {
			xlog.Error("Failed to connect to MCP server", "agent", a.Name(), "error", err.Error())
			errs = append(errs, err)
			continue
		}
		a.mcpSessions = append(a.mcpSessions, session)
	}

	for _, session := range a.mcpSessions {
		actions, err := sessionActions(a.context, session)
		if err != nil {
			xlog.Error("Failed to list MCP tools", "agent", a.Name(), "error", err.Error())
			errs = append(errs, err)
			continue
		}
		a.mcpActions = append(a.mcpActions, actions...)
	}

	return errors.Join(errs...)
}

// sessionActions lists every tool exposed by the session, following
// pagination, and wraps each one as an Action.
func sessionActions(ctx context.Context, session *mcp.ClientSession) (types.Actions, error) {
	var actions types.Actions
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return actions, fmt.Errorf("listing tools: %w", err)
		}
		for _, tool := range res.Tools {
			action, err := newMCPAction(session, tool)
			if err != nil {
				xlog.Warn("Skipping MCP tool", "tool", tool.Name, "error", err.Error())
				continue
			}
			xlog.Debug("MCP tool registered", "tool", tool.Name)
			actions = append(actions, action)
		}
		if res.NextCursor == "" {
			break
		}
		params.Cursor = res.NextCursor
	}
	return actions, nil
}

func (a *Agent) closeMCPSessions() {
	for _, s := range a.mcpSessions {
		if err := s.Close(); err != nil {
			xlog.Debug("Closing MCP session", "agent", a.Name(), "error", err.Error())
		}
	}
	a.mcpSessions = nil
	a.mcpActions = nil
}

type mcpAction struct {
	session     *mcp.ClientSession
	name        string
	description string
	readOnly    bool
	schema      ToolInputSchema
}

func newMCPAction(session *mcp.ClientSession, tool *mcp.Tool) (*mcpAction, error) {
	schema := ToolInputSchema{Type: "object"}
	if tool.InputSchema != nil {
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, err
		}
	}
	return &mcpAction{
		session:     session,
		name:        tool.Name,
		description: tool.Description,
		readOnly:    tool.Annotations != nil && tool.Annotations.ReadOnlyHint,
		schema:      schema,
	}, nil
}

func (m *mcpAction) ReadOnly() bool {
	return m.readOnly
}

func (m *mcpAction) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	args := map[string]any(params)
	if args == nil {
		args = map[string]any{}
	}

	resp, err := m.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      m.name,
		Arguments: args,
	})
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("calling MCP tool %s: %w", m.name, err)
	}

	var parts []string
	for _, c := range resp.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	result := strings.Join(parts, "\n")

	if resp.IsError {
		return types.ActionResult{}, fmt.Errorf("%s", result)
	}
	return types.ActionResult{Result: result}, nil
}

func (m *mcpAction) Definition() types.ActionDefinition {
	props := map[string]jsonschema.Definition{}
	if len(m.schema.Properties) > 0 {
		dat, err := json.Marshal(m.schema.Properties)
		if err == nil {
			if err := json.Unmarshal(dat, &props); err != nil {
				xlog.Warn("Unreadable MCP tool schema", "tool", m.name, "error", err.Error())
			}
		}
	}

	return types.ActionDefinition{
		Name:        types.ActionDefinitionName(m.name),
		Description: m.description,
		Required:    m.schema.Required,
		Properties:  props,
	}
}
