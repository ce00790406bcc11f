package healthcheck_test

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/netagent/netagent/pkg/inventory"
	"github.com/netagent/netagent/services/actions"
	"github.com/netagent/netagent/services/healthcheck"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testbedYAML = `
testbed:
  name: lab
  credentials:
    default:
      username: cisco
      password: supersecret
devices:
  CSR1:
    os: iosxe
    connections:
      cli:
        ip: 192.168.1.55
  CSR2:
    os: iosxe
    connections:
      cli:
        ip: 192.168.1.59
`

type staticInventory struct{ tb *inventory.Testbed }

func (s staticInventory) Testbed() *inventory.Testbed { return s.tb }

// labRunner knows CSR1 only.
type labRunner struct{}

func (labRunner) Execute(_ context.Context, device string, commands ...string) (string, error) {
	if device != "CSR1" {
		return "", errors.New("device " + device + " not found in testbed")
	}
	return device + "#" + strings.Join(commands, ";"), nil
}

func (labRunner) Configure(context.Context, string, []string) (string, error) {
	return "", errors.New("read only")
}

func text(res *mcp.CallToolResult) string {
	parts := []string{}
	for _, c := range res.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ = Describe("Healthcheck MCP server", func() {
	var (
		session *mcp.ClientSession
		ctx     context.Context
		cancel  context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)

		tb, err := inventory.Parse([]byte(testbedYAML))
		Expect(err).ToNot(HaveOccurred())

		server := healthcheck.NewServer(staticInventory{tb: tb}, labRunner{})
		transport, err := server.Connect(ctx)
		Expect(err).ToNot(HaveOccurred())

		client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
		session, err = client.Connect(ctx, transport, nil)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(session.Close)
	})

	It("lists the health tools", func() {
		res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
		Expect(err).ToNot(HaveOccurred())
		names := []string{}
		for _, t := range res.Tools {
			names = append(names, t.Name)
			Expect(t.Annotations).NotTo(BeNil())
			Expect(t.Annotations.ReadOnlyHint).To(BeTrue(), t.Name)
		}
		Expect(names).To(ConsistOf(
			"get_name_devices_tool", "cpu_checking", "interface_checking", "crc_checking", "custom_show_command",
		))
	})

	It("returns the device names", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_name_devices_tool", Arguments: map[string]any{}})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(text(res)).To(Equal(`["CSR1","CSR2"]`))
	})

	It("runs the fixed check commands", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "cpu_checking",
			Arguments: map[string]any{"device_name": "CSR1"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(text(res)).To(Equal("CSR1#" + actions.CommandCPU))

		res, err = session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "crc_checking",
			Arguments: map[string]any{"device_name": "CSR1"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(text(res)).To(Equal("CSR1#" + actions.CommandCRC))
	})

	It("reports failures as error results", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "interface_checking",
			Arguments: map[string]any{"device_name": "CSR9"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
		Expect(text(res)).To(ContainSubstring("error checking interface: device CSR9 not found in testbed"))
	})

	It("accepts only show commands", func() {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "custom_show_command",
			Arguments: map[string]any{"device_name": "CSR1", "commands": []string{"show clock", "show version"}},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(text(res)).To(Equal("CSR1#show clock;show version"))

		res, err = session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "custom_show_command",
			Arguments: map[string]any{"device_name": "CSR1", "commands": []string{"reload"}},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
	})

	It("serves the agent prompt", func() {
		res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{Name: healthcheck.PromptName})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Messages).To(HaveLen(1))
		Expect(res.Messages[0].Content.(*mcp.TextContent).Text).To(ContainSubstring("get_name_devices_tool"))
	})

	It("serves the redacted inventory", func() {
		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: healthcheck.DevicesURI})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Contents).To(HaveLen(1))
		Expect(res.Contents[0].Text).To(ContainSubstring("CSR2"))
		Expect(res.Contents[0].Text).ToNot(ContainSubstring("supersecret"))
	})
})

var _ = Describe("Healthcheck MCP server over a stream", func() {
	It("speaks JSON-RPC on the given reader and writer", func() {
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)

		tb, err := inventory.Parse([]byte(testbedYAML))
		Expect(err).ToNot(HaveOccurred())
		server := healthcheck.NewServer(staticInventory{tb: tb}, labRunner{})

		clientToServerR, clientToServerW := io.Pipe()
		serverToClientR, serverToClientW := io.Pipe()
		done := make(chan error, 1)
		go func() {
			done <- server.Serve(ctx, clientToServerR, serverToClientW)
		}()

		client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
		session, err := client.Connect(ctx, &mcp.IOTransport{Reader: serverToClientR, Writer: clientToServerW}, nil)
		Expect(err).ToNot(HaveOccurred())

		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "cpu_checking",
			Arguments: map[string]any{"device_name": "CSR1"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(text(res)).To(Equal("CSR1#" + actions.CommandCPU))

		session.Close()
		Eventually(done).Should(Receive())
	})
})
