package agent

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
)

type Option func(*options) error

type options struct {
	name          string
	description   string
	prompt        string
	model         string
	temperature   float32
	maxIterations int

	client          llm.LLMClient
	userActions     types.Actions
	mcpServers      []MCPServer
	mcpStdioServers []MCPSTDIOServer
	mcpTransports   []mcp.Transport
	context         context.Context
}

func defaultOptions() *options {
	return &options{
		model:         "gpt-4o-mini",
		maxIterations: 10,
		prompt:        DefaultPrompt,
		context:       context.Background(),
	}
}

func newOptions(opts ...Option) (*options, error) {
	options := defaultOptions()
	for _, o := range opts {
		if err := o(options); err != nil {
			return nil, err
		}
	}
	if options.name == "" {
		return nil, errors.New("agent name is required")
	}
	if options.client == nil {
		return nil, errors.New("an LLM client is required")
	}
	return options, nil
}

func WithName(name string) Option {
	return func(o *options) error {
		o.name = name
		return nil
	}
}

func WithDescription(description string) Option {
	return func(o *options) error {
		o.description = description
		return nil
	}
}

// WithPrompt sets the system prompt template. The template receives the
// task as .Messages and may use sprig functions.
func WithPrompt(prompt string) Option {
	return func(o *options) error {
		if prompt == "" {
			return nil
		}
		if _, err := templateBase("validate", prompt); err != nil {
			return err
		}
		o.prompt = prompt
		return nil
	}
}

func WithLLMClient(client llm.LLMClient) Option {
	return func(o *options) error {
		o.client = client
		return nil
	}
}

func WithModel(model string) Option {
	return func(o *options) error {
		if model != "" {
			o.model = model
		}
		return nil
	}
}

func WithTemperature(t float32) Option {
	return func(o *options) error {
		o.temperature = t
		return nil
	}
}

func WithMaxIterations(n int) Option {
	return func(o *options) error {
		if n > 0 {
			o.maxIterations = n
		}
		return nil
	}
}

func WithActions(actions ...types.Action) Option {
	return func(o *options) error {
		o.userActions = append(o.userActions, actions...)
		return nil
	}
}

func WithMCPServers(servers ...MCPServer) Option {
	return func(o *options) error {
		o.mcpServers = append(o.mcpServers, servers...)
		return nil
	}
}

func WithMCPSTDIOServers(servers ...MCPSTDIOServer) Option {
	return func(o *options) error {
		o.mcpStdioServers = append(o.mcpStdioServers, servers...)
		return nil
	}
}

func WithContext(ctx context.Context) Option {
	return func(o *options) error {
		o.context = ctx
		return nil
	}
}

// WithMCPTransports connects the agent to MCP servers over already built
// transports, e.g. the client side of mcp.NewInMemoryTransports.
func WithMCPTransports(transports ...mcp.Transport) Option {
	return func(o *options) error {
		o.mcpTransports = append(o.mcpTransports, transports...)
		return nil
	}
}
