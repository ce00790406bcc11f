package agent_test

import (
	"context"
	"errors"
	"strings"

	"github.com/netagent/netagent/core/agent"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type TestAction struct {
	response string
	err      error
	params   []types.ActionParams
}

func (a *TestAction) ReadOnly() bool {
	return true
}

func (a *TestAction) Run(_ context.Context, p types.ActionParams) (types.ActionResult, error) {
	a.params = append(a.params, p)
	if a.err != nil {
		return types.ActionResult{}, a.err
	}
	return types.ActionResult{Result: a.response}, nil
}

func (a *TestAction) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "cpu_checking",
		Description: "Check CPU utilization of a device",
		Properties: map[string]jsonschema.Definition{
			"device_name": {
				Type:        jsonschema.String,
				Description: "The device name",
			},
		},
		Required: []string{"device_name"},
	}
}

// scripted answers with the given responses in order, then repeats the last.
func scripted(responses ...openai.ChatCompletionResponse) *llm.MockClient {
	i := 0
	return &llm.MockClient{
		CreateChatCompletionFunc: func(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			r := responses[min(i, len(responses)-1)]
			i++
			return r, nil
		},
	}
}

var _ = Describe("Agent", func() {
	It("requires a name and a client", func() {
		_, err := agent.New(agent.WithLLMClient(&llm.MockClient{}))
		Expect(err).To(HaveOccurred())

		_, err = agent.New(agent.WithName("ios_agent"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects prompts that do not parse", func() {
		_, err := agent.New(
			agent.WithName("ios_agent"),
			agent.WithLLMClient(&llm.MockClient{}),
			agent.WithPrompt("{{.Messages"),
		)
		Expect(err).To(HaveOccurred())
	})

	It("returns the model answer when no tool is called", func() {
		client := scripted(llm.TextResponse("all good"))
		a, err := agent.New(
			agent.WithName("healthcheck_agent"),
			agent.WithLLMClient(client),
			agent.WithPrompt("You check devices.\n{{.Messages}}"),
		)
		Expect(err).ToNot(HaveOccurred())

		out, err := a.Run(context.Background(), "check CSR1", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("all good"))

		reqs := client.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Messages[0].Role).To(Equal(openai.ChatMessageRoleSystem))
		Expect(reqs[0].Messages[0].Content).To(ContainSubstring("check CSR1"))
		Expect(reqs[0].Messages[1].Content).To(Equal("check CSR1"))
		Expect(reqs[0].Tools).To(BeEmpty())
	})

	It("runs tools and feeds the result back to the model", func() {
		action := &TestAction{response: "CPU utilization for five seconds: 3%"}
		client := scripted(
			llm.ToolCallResponse("cpu_checking", `{"device_name":"CSR1"}`),
			llm.TextResponse("CSR1 CPU is at 3%"),
		)
		a, err := agent.New(
			agent.WithName("healthcheck_agent"),
			agent.WithLLMClient(client),
			agent.WithActions(action),
		)
		Expect(err).ToNot(HaveOccurred())

		out, err := a.Run(context.Background(), "check CPU of CSR1", map[string]string{"ios_agent": "done"})
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("CSR1 CPU is at 3%"))
		Expect(action.params).To(HaveLen(1))
		Expect(action.params[0]["device_name"]).To(Equal("CSR1"))

		reqs := client.Requests()
		Expect(reqs).To(HaveLen(2))
		Expect(reqs[0].Tools).To(HaveLen(1))
		Expect(reqs[0].Tools[0].Function.Name).To(Equal("cpu_checking"))
		Expect(reqs[0].Messages[1].Content).To(ContainSubstring("ios_agent: done"))

		last := reqs[1].Messages[len(reqs[1].Messages)-1]
		Expect(last.Role).To(Equal(openai.ChatMessageRoleTool))
		Expect(last.ToolCallID).To(Equal("call_cpu_checking"))
		Expect(last.Content).To(ContainSubstring("3%"))
	})

	It("reports tool failures to the model instead of aborting", func() {
		action := &TestAction{err: errors.New("connection refused")}
		client := scripted(
			llm.ToolCallResponse("cpu_checking", `{"device_name":"CSR1"}`),
			llm.TextResponse("CSR1 is unreachable"),
		)
		a, err := agent.New(
			agent.WithName("healthcheck_agent"),
			agent.WithLLMClient(client),
			agent.WithActions(action),
		)
		Expect(err).ToNot(HaveOccurred())

		out, err := a.Run(context.Background(), "check CSR1", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("CSR1 is unreachable"))

		reqs := client.Requests()
		last := reqs[1].Messages[len(reqs[1].Messages)-1]
		Expect(last.Content).To(Equal("Error: connection refused"))
	})

	It("answers unknown tools with an error result", func() {
		client := scripted(
			llm.ToolCallResponse("reboot", `{}`),
			llm.TextResponse("cannot reboot"),
		)
		a, err := agent.New(agent.WithName("ios_agent"), agent.WithLLMClient(client))
		Expect(err).ToNot(HaveOccurred())

		out, err := a.Run(context.Background(), "reboot CSR1", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("cannot reboot"))

		last := client.Requests()[1].Messages
		Expect(last[len(last)-1].Content).To(HavePrefix("Error: unknown tool"))
	})

	It("stops after the iteration limit", func() {
		action := &TestAction{response: "ok"}
		client := scripted(llm.ToolCallResponse("cpu_checking", `{"device_name":"CSR1"}`))
		a, err := agent.New(
			agent.WithName("healthcheck_agent"),
			agent.WithLLMClient(client),
			agent.WithActions(action),
			agent.WithMaxIterations(3),
		)
		Expect(err).ToNot(HaveOccurred())

		_, err = a.Run(context.Background(), "loop", nil)
		Expect(err).To(MatchError(agent.ErrMaxIterations))
		Expect(client.Requests()).To(HaveLen(3))
		Expect(action.params).To(HaveLen(3))
	})

	It("propagates model errors", func() {
		client := &llm.MockClient{
			CreateChatCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, errors.New("quota exceeded")
			},
		}
		a, err := agent.New(agent.WithName("notify_agent"), agent.WithLLMClient(client))
		Expect(err).ToNot(HaveOccurred())

		_, err = a.Run(context.Background(), "notify", nil)
		Expect(err).To(HaveOccurred())
		Expect(strings.Contains(err.Error(), "quota exceeded")).To(BeTrue())
	})
})
