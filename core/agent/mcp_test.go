package agent_test

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/netagent/netagent/core/agent"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type deviceInput struct {
	DeviceName string `json:"device_name" jsonschema:"the device to check"`
}

func newTestMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "crc_checking",
		Description: "Check CRC errors",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	},
		func(_ context.Context, _ *mcp.CallToolRequest, in deviceInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: in.DeviceName + ": 0 CRC"}},
			}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "cpu_checking", Description: "Check CPU"},
		func(_ context.Context, _ *mcp.CallToolRequest, in deviceInput) (*mcp.CallToolResult, any, error) {
			return nil, nil, errors.New("device " + in.DeviceName + " not found")
		})
	return server
}

var _ = Describe("MCP actions", func() {
	var (
		a      *agent.Agent
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())

		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		_, err := newTestMCPServer().Connect(ctx, serverTransport, nil)
		Expect(err).ToNot(HaveOccurred())

		a, err = agent.New(
			agent.WithName("healthcheck_agent"),
			agent.WithLLMClient(&llm.MockClient{}),
			agent.WithContext(ctx),
			agent.WithMCPTransports(clientTransport),
		)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		a.Close()
		cancel()
	})

	It("exposes the server tools as actions", func() {
		names := a.Actions().Names()
		Expect(names).To(ConsistOf("crc_checking", "cpu_checking"))

		def := a.Actions().Find("crc_checking").Definition()
		Expect(def.Description).To(Equal("Check CRC errors"))
		Expect(def.Properties).To(HaveKey("device_name"))
		Expect(def.Required).To(ContainElement("device_name"))

		Expect(a.Actions().Find("crc_checking").ReadOnly()).To(BeTrue())
		Expect(a.Actions().Find("cpu_checking").ReadOnly()).To(BeFalse())
	})

	It("calls tools and joins the text content", func() {
		res, err := a.Actions().Find("crc_checking").Run(context.Background(), types.ActionParams{"device_name": "CSR1"})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Result).To(Equal("CSR1: 0 CRC"))
	})

	It("turns error results into errors", func() {
		_, err := a.Actions().Find("cpu_checking").Run(context.Background(), types.ActionParams{"device_name": "R9"})
		Expect(err).To(MatchError(ContainSubstring("device R9 not found")))
	})

	It("drops the tools once closed", func() {
		a.Close()
		Expect(a.Actions()).To(BeEmpty())
	})
})
