package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/netagent/netagent/api"
	"github.com/netagent/netagent/core/state"
	"github.com/netagent/netagent/core/supervisor"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/inventory"
	"github.com/netagent/netagent/pkg/llm"
	"github.com/netagent/netagent/services/healthcheck"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
)

const labTestbed = `
testbed:
  name: lab
  credentials:
    default:
      username: cisco
      password: cisco
devices:
  CSR1:
    os: iosxe
    connections:
      cli:
        ip: 10.0.0.1
`

type labInventory struct{ tb *inventory.Testbed }

func (l labInventory) Testbed() *inventory.Testbed { return l.tb }

type labRunner struct{}

func (labRunner) Execute(_ context.Context, device string, commands ...string) (string, error) {
	return device + ": CPU utilization for five seconds: 3%/0%", nil
}

func (labRunner) Configure(context.Context, string, []string) (string, error) {
	return "", errors.New("read only")
}

// scriptedLLM routes to the healthcheck agent once, which calls
// cpu_checking over MCP and reports the tool output.
func scriptedLLM() *llm.MockClient {
	var mu sync.Mutex
	routed := false
	return &llm.MockClient{
		CreateChatCompletionFunc: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			if req.ToolChoice != nil {
				mu.Lock()
				defer mu.Unlock()
				next := types.Terminal
				if !routed {
					next, routed = "healthcheck_agent", true
				}
				args, _ := json.Marshal(supervisor.Decision{Next: next})
				return llm.ToolCallResponse("route", string(args)), nil
			}

			last := req.Messages[len(req.Messages)-1]
			if last.Role == openai.ChatMessageRoleTool {
				return llm.TextResponse("report: " + last.Content), nil
			}
			return llm.ToolCallResponse("cpu_checking", `{"device_name": "CSR1"}`), nil
		},
	}
}

var _ = Describe("Team behind the API", func() {
	var (
		app    *api.App
		events []types.Message
	)

	BeforeEach(func() {
		tb, err := inventory.Parse([]byte(labTestbed))
		Expect(err).NotTo(HaveOccurred())
		hc := healthcheck.NewServer(labInventory{tb}, labRunner{})

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		events = nil
		team, err := state.NewTeam(&state.TeamConfig{
			Agents: []state.AgentConfig{{
				Name:           "healthcheck_agent",
				Description:    "Runs health diagnostics on devices",
				HealthcheckMCP: true,
			}},
		}, state.TeamOptions{
			Client:       scriptedLLM(),
			DefaultModel: "test-model",
			Context:      ctx,
			MCPTransports: func(*state.AgentConfig) []mcp.Transport {
				t, err := hc.Connect(ctx)
				Expect(err).NotTo(HaveOccurred())
				return []mcp.Transport{t}
			},
			Observer: func(_ *types.State, m types.Message) {
				events = append(events, m)
			},
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(team.Close)

		app = api.NewApp(api.WithTeam(team))
	})

	It("answers through the healthcheck MCP server", func() {
		status, body := do(app, http.MethodPost, "/agent", `{"input_text": "check cpu on CSR1"}`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("output_text", "healthcheck_agent: report: CSR1: CPU utilization for five seconds: 3%/0%"))

		agents := []string{}
		for _, m := range events {
			agents = append(agents, m.AgentID)
		}
		Expect(agents).To(ContainElement("healthcheck_agent"))
		Expect(events[len(events)-1].Content).To(HaveSuffix("Message processing complete."))
	})

	It("lists the agents with their MCP tools", func() {
		status, body := do(app, http.MethodGet, "/api/agents", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("agentCount", BeNumerically("==", 1)))

		agents := body["agents"].([]any)
		first := agents[0].(map[string]any)
		Expect(first["name"]).To(Equal("healthcheck_agent"))
		tools := []string{}
		for _, t := range first["actions"].([]any) {
			tools = append(tools, t.(string))
		}
		Expect(strings.Join(tools, ",")).To(ContainSubstring("cpu_checking"))
	})
})
