package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
	"github.com/sashabaranov/go-openai"
)

var ErrMaxIterations = errors.New("agent reached the maximum number of tool iterations")

// Agent is a specialist: a prompt, a model and the tools it may call.
type Agent struct {
	sync.Mutex
	options *options
	client  llm.LLMClient
	context context.Context

	mcpSessions []*mcp.ClientSession
	mcpActions  types.Actions
}

func New(opts ...Option) (*Agent, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set options: %v", err)
	}

	a := &Agent{
		options: options,
		client:  options.client,
		context: options.context,
	}

	if len(options.mcpServers) > 0 || len(options.mcpStdioServers) > 0 || len(options.mcpTransports) > 0 {
		if err := a.initMCPActions(); err != nil {
			xlog.Warn("Some MCP servers are unavailable", "agent", a.Name(), "error", err.Error())
		}
	}

	xlog.Debug("Agent created", "agent", a.Name(), "model", options.model, "actions", a.availableActions().Names())
	return a, nil
}

func (a *Agent) Name() string {
	return a.options.name
}

func (a *Agent) Description() string {
	return a.options.description
}

// Actions returns the tools this agent can call, MCP tools first.
func (a *Agent) Actions() types.Actions {
	return a.availableActions()
}

func (a *Agent) availableActions() types.Actions {
	actions := types.Actions{}
	actions = append(actions, a.mcpActions...)
	actions = append(actions, a.options.userActions...)
	return actions
}

// Close releases every MCP session held by the agent.
func (a *Agent) Close() {
	a.Lock()
	defer a.Unlock()
	a.closeMCPSessions()
}

// Run executes the task. The model is called in a loop: every tool call it
// makes is executed and its result fed back, until it answers with plain
// text or the iteration limit is hit.
func (a *Agent) Run(ctx context.Context, task string, responses map[string]string) (string, error) {
	a.Lock()
	actions := a.availableActions()
	a.Unlock()

	system, err := renderPrompt(a.Name(), a.options.prompt, promptData{
		Name:      a.Name(),
		Messages:  task,
		Responses: responses,
		Tools:     actions.Names(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt of %s: %w", a.Name(), err)
	}

	conv := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: userMessage(task, responses)},
	}

	tools := actions.Tools()
	var last string
	for i := 0; i < a.options.maxIterations; i++ {
		req := openai.ChatCompletionRequest{
			Model:       a.options.model,
			Messages:    conv,
			Temperature: a.options.temperature,
		}
		if len(tools) > 0 {
			req.Tools = tools
		}

		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			agentRuns.WithLabelValues(a.Name(), "error").Inc()
			return "", fmt.Errorf("%s: %w", a.Name(), err)
		}
		if len(resp.Choices) != 1 {
			agentRuns.WithLabelValues(a.Name(), "error").Inc()
			return "", fmt.Errorf("%s: %w", a.Name(), llm.ErrNoChoices)
		}

		msg := resp.Choices[0].Message
		last = msg.Content
		if len(msg.ToolCalls) == 0 {
			agentRuns.WithLabelValues(a.Name(), "success").Inc()
			return msg.Content, nil
		}

		conv = append(conv, msg)
		for _, tc := range msg.ToolCalls {
			result := a.runTool(ctx, actions, tc)
			conv = append(conv, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
	}

	xlog.Warn("Agent stopped at iteration limit", "agent", a.Name(), "limit", a.options.maxIterations)
	agentRuns.WithLabelValues(a.Name(), "limit").Inc()
	if last != "" {
		return last, nil
	}
	return "", fmt.Errorf("%s: %w", a.Name(), ErrMaxIterations)
}

// runTool never fails: errors are reported back to the model as the tool
// result.
func (a *Agent) runTool(ctx context.Context, actions types.Actions, tc openai.ToolCall) string {
	name := tc.Function.Name
	action := actions.Find(name)
	if action == nil {
		xlog.Warn("Model called an unknown tool", "agent", a.Name(), "tool", name)
		toolCalls.WithLabelValues(name, "unknown").Inc()
		return fmt.Sprintf("Error: unknown tool %q", name)
	}

	params, err := types.ParseActionParams(tc.Function.Arguments)
	if err != nil {
		toolCalls.WithLabelValues(name, "error").Inc()
		return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
	}

	xlog.Info("Running tool", "agent", a.Name(), "tool", name, "params", params.String())
	res, err := action.Run(ctx, params)
	if err != nil {
		xlog.Error("Tool failed", "agent", a.Name(), "tool", name, "error", err.Error())
		toolCalls.WithLabelValues(name, "error").Inc()
		return "Error: " + err.Error()
	}
	toolCalls.WithLabelValues(name, "success").Inc()
	return res.Result
}

func userMessage(task string, responses map[string]string) string {
	if len(responses) == 0 {
		return task
	}
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nResponses from other agents so far:")
	for _, line := range sortedResponses(responses) {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func sortedResponses(responses map[string]string) []string {
	names := make([]string, 0, len(responses))
	for name := range responses {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, responses[name]))
	}
	return lines
}
