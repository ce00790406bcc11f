package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/agent"
	"github.com/netagent/netagent/core/supervisor"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
)

// TeamOptions carries what the team builder cannot derive from the
// configuration. Actions and MCPTransports are called once per agent.
type TeamOptions struct {
	Client        llm.LLMClient
	DefaultModel  string
	Context       context.Context
	Actions       func(*AgentConfig) []types.Action
	MCPTransports func(*AgentConfig) []mcp.Transport
	Observer      supervisor.Observer
}

// Team is a supervisor and the specialists it routes to.
type Team struct {
	sync.Mutex
	config     *TeamConfig
	agents     []*agent.Agent
	supervisor *supervisor.Supervisor
}

func NewTeam(cfg *TeamConfig, opts TeamOptions) (*Team, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	t := &Team{config: cfg}
	workers := []supervisor.Worker{}

	for i := range cfg.Agents {
		a, err := newAgent(&cfg.Agents[i], opts)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("creating agent %s: %w", cfg.Agents[i].Name, err)
		}
		t.agents = append(t.agents, a)
		workers = append(workers, a)
	}

	model := cfg.Supervisor.Model
	if model == "" {
		model = opts.DefaultModel
	}
	sup, err := supervisor.New(opts.Client, model, workers,
		supervisor.WithPrompt(cfg.Supervisor.Prompt),
		supervisor.WithRecursionLimit(cfg.Supervisor.RecursionLimit),
		supervisor.WithTemperature(temperatureOr(cfg.Supervisor.Temperature, 0.5)),
		supervisor.WithObserver(opts.Observer),
	)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.supervisor = sup

	xlog.Info("Team ready", "agents", len(t.agents), "model", model, "recursion_limit", sup.RecursionLimit())
	return t, nil
}

func temperatureOr(t, def float32) float32 {
	if t == 0 {
		return def
	}
	return t
}

func newAgent(cfg *AgentConfig, opts TeamOptions) (*agent.Agent, error) {
	model := cfg.Model
	if model == "" {
		model = opts.DefaultModel
	}

	var actions []types.Action
	if opts.Actions != nil {
		actions = opts.Actions(cfg)
	}
	var transports []mcp.Transport
	if opts.MCPTransports != nil {
		transports = opts.MCPTransports(cfg)
	}

	actionsLog := []string{}
	for _, a := range actions {
		actionsLog = append(actionsLog, a.Definition().Name.String())
	}
	xlog.Info("Creating agent",
		"name", cfg.Name,
		"model", model,
		"actions", actionsLog,
		"mcp_servers", len(cfg.MCPServers)+len(cfg.MCPSTDIOServers)+len(transports),
	)

	return agent.New(
		agent.WithName(cfg.Name),
		agent.WithDescription(cfg.Description),
		agent.WithPrompt(cfg.Prompt),
		agent.WithLLMClient(opts.Client),
		agent.WithModel(model),
		agent.WithTemperature(cfg.Temperature),
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithContext(opts.Context),
		agent.WithActions(actions...),
		agent.WithMCPServers(cfg.MCPServers...),
		agent.WithMCPSTDIOServers(cfg.MCPSTDIOServers...),
		agent.WithMCPTransports(transports...),
	)
}

func (t *Team) Supervisor() *supervisor.Supervisor {
	return t.supervisor
}

func (t *Team) Config() *TeamConfig {
	return t.config
}

func (t *Team) Agents() []*agent.Agent {
	t.Lock()
	defer t.Unlock()
	return append([]*agent.Agent{}, t.agents...)
}

func (t *Team) Agent(name string) *agent.Agent {
	for _, a := range t.Agents() {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Close stops every agent and its MCP sessions.
func (t *Team) Close() {
	t.Lock()
	defer t.Unlock()
	for _, a := range t.agents {
		a.Close()
	}
}
