package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/conversations"
	"github.com/netagent/netagent/core/sse"
	"github.com/netagent/netagent/core/state"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/inventory"
	"github.com/netagent/netagent/pkg/llm"
	"github.com/netagent/netagent/pkg/netssh"
	"github.com/netagent/netagent/services"
	"github.com/netagent/netagent/services/healthcheck"
)

// runtime is everything a command needs to answer requests.
type runtime struct {
	config    *state.TeamConfig
	team      *state.Team
	inventory *inventory.Store
	inbox     *conversations.Inbox
	events    sse.Manager
}

func newLLMClient(ctx context.Context) (llm.LLMClient, error) {
	cfg := llm.Config{Provider: provider, APIKey: apiKey, BaseURL: apiURL, Timeout: timeout}
	if provider == llm.ProviderGemini {
		cfg.APIKey = googleAPIKey
	}
	return llm.New(ctx, cfg)
}

func loadTeamConfig() (*state.TeamConfig, error) {
	if configPath == "" {
		return state.DefaultTeamConfig(), nil
	}
	return state.LoadTeamConfig(configPath)
}

func loadInventory() (*inventory.Store, error) {
	path := testbedPath
	if path == "" {
		var err error
		if path, err = inventory.FindTestbed(); err != nil {
			return nil, err
		}
	}
	return inventory.NewStore(path)
}

// newRuntime builds the team. A missing testbed leaves the device tools out.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadTeamConfig()
	if err != nil {
		return nil, err
	}

	client, err := newLLMClient(ctx)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		config: cfg,
		inbox:  conversations.NewInbox(50),
		events: sse.NewManager(),
	}
	deps := services.Deps{Inbox: rt.inbox}

	var hc *healthcheck.Server
	store, err := loadInventory()
	if err != nil {
		xlog.Warn("Device tools disabled", "error", err.Error())
	} else {
		rt.inventory = store
		d, err := time.ParseDuration(sshTimeout)
		if err != nil {
			return nil, fmt.Errorf("NETAGENT_SSH_TIMEOUT: %w", err)
		}
		runner := netssh.NewRunner(store, d)
		deps.Devices = runner
		deps.Inventory = store
		hc = healthcheck.NewServer(store, runner)
		xlog.Info("Testbed loaded", "path", store.Path(), "devices", store.Testbed().DeviceNames())
	}

	team, err := state.NewTeam(cfg, state.TeamOptions{
		Client:       client,
		DefaultModel: defaultModel(),
		Context:      ctx,
		Actions:      services.Actions(deps),
		Observer: func(st *types.State, m types.Message) {
			rt.events.Send(sse.NewStateMessage(st, m))
		},
		MCPTransports: func(a *state.AgentConfig) []mcp.Transport {
			if !a.HealthcheckMCP || hc == nil {
				return nil
			}
			t, err := hc.Connect(ctx)
			if err != nil {
				xlog.Error("Failed to attach healthcheck server", "agent", a.Name, "error", err.Error())
				return nil
			}
			return []mcp.Transport{t}
		},
	})
	if err != nil {
		return nil, err
	}
	rt.team = team

	return rt, nil
}

func (rt *runtime) Close() {
	rt.team.Close()
}
