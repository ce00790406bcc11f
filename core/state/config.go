package state

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/netagent/netagent/core/agent"
	"github.com/netagent/netagent/core/types"
)

type ActionsConfig struct {
	Name   string            `yaml:"name" json:"name"`
	Config map[string]string `yaml:"config" json:"config,omitempty"`
}

type AgentConfig struct {
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description"`
	Prompt        string  `yaml:"prompt" json:"prompt,omitempty"`
	Model         string  `yaml:"model" json:"model,omitempty"`
	Temperature   float32 `yaml:"temperature" json:"temperature,omitempty"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations,omitempty"`

	Actions         []ActionsConfig        `yaml:"actions" json:"actions"`
	MCPServers      []agent.MCPServer      `yaml:"mcp_servers" json:"mcp_servers,omitempty"`
	MCPSTDIOServers []agent.MCPSTDIOServer `yaml:"mcp_stdio_servers" json:"mcp_stdio_servers,omitempty"`
	// HealthcheckMCP attaches the in-process healthcheck MCP server.
	HealthcheckMCP bool `yaml:"healthcheck_mcp" json:"healthcheck_mcp,omitempty"`
}

type SupervisorConfig struct {
	Prompt         string  `yaml:"prompt" json:"prompt,omitempty"`
	Model          string  `yaml:"model" json:"model,omitempty"`
	Temperature    float32 `yaml:"temperature" json:"temperature,omitempty"`
	RecursionLimit int     `yaml:"recursion_limit" json:"recursion_limit,omitempty"`
}

// ConnectorConfig enables a chat connector feeding the supervisor.
type ConnectorConfig struct {
	Type   string            `yaml:"type" json:"type"`
	Config map[string]string `yaml:"config" json:"config,omitempty"`
}

type TeamConfig struct {
	Supervisor SupervisorConfig  `yaml:"supervisor" json:"supervisor"`
	Agents     []AgentConfig     `yaml:"agents" json:"agents"`
	Connectors []ConnectorConfig `yaml:"connectors" json:"connectors,omitempty"`
}

// LoadTeamConfig reads a team YAML file.
func LoadTeamConfig(path string) (*TeamConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load team config from %q: %w", path, err)
	}

	var cfg TeamConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse team config from %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("team config %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *TeamConfig) Validate() error {
	if len(c.Agents) == 0 {
		return errors.New("at least one agent is required")
	}
	seen := map[string]bool{}
	for i, a := range c.Agents {
		switch {
		case a.Name == "":
			return fmt.Errorf("agents[%d]: name is required", i)
		case a.Name == types.Terminal || a.Name == "supervisor":
			return fmt.Errorf("agents[%d]: %q is a reserved name", i, a.Name)
		case seen[a.Name]:
			return fmt.Errorf("agents[%d]: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true
		for j, act := range a.Actions {
			if act.Name == "" {
				return fmt.Errorf("agents[%d].actions[%d]: name is required", i, j)
			}
		}
	}
	for i, conn := range c.Connectors {
		if conn.Type == "" {
			return fmt.Errorf("connectors[%d]: type is required", i)
		}
	}
	if c.Supervisor.RecursionLimit < 0 {
		return errors.New("supervisor.recursion_limit must be positive")
	}
	return nil
}

func (c *TeamConfig) Agent(name string) *AgentConfig {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i]
		}
	}
	return nil
}
