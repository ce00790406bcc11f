// Package healthcheck serves the device health tools over MCP, either to an
// external MCP client on stdio or to the in-process healthcheck agent.
package healthcheck

import (
	"context"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/services/actions"
)

const (
	ServerName    = "healthcheck-server"
	ServerVersion = "v1.0.0"
	PromptName    = "healthcheck agent"
	DevicesURI    = "testbed://devices"
)

const agentPrompt = `You are a network health check agent.
Use get_name_devices_tool to learn the device names, then run cpu_checking,
interface_checking and crc_checking on the devices the user asked about.
Use custom_show_command for any other show command.
Summarize the findings per device and point out anything abnormal.`

type deviceInput struct {
	DeviceName string `json:"device_name" jsonschema:"name of the device in the testbed, e.g. CSR1"`
}

type showInput struct {
	DeviceName string   `json:"device_name" jsonschema:"name of the device in the testbed, e.g. CSR1"`
	Commands   []string `json:"commands" jsonschema:"show commands to run, one per item"`
}

type noInput struct{}

// Server wraps the MCP server exposing the health tools.
type Server struct {
	inventory actions.Inventory
	server    *mcp.Server
}

func NewServer(inv actions.Inventory, runner actions.DeviceRunner) *Server {
	s := &Server{
		inventory: inv,
		server:    mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil),
	}

	listDevices := actions.NewListDevices(inv, "get_name_devices_tool")
	mcp.AddTool(s.server, tool(listDevices), func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, listDevices, types.ActionParams{})
	})

	for _, check := range []*actions.DeviceCheck{
		actions.NewCPUChecking(runner),
		actions.NewInterfaceChecking(runner),
		actions.NewCRCChecking(runner),
	} {
		mcp.AddTool(s.server, tool(check), func(ctx context.Context, _ *mcp.CallToolRequest, in deviceInput) (*mcp.CallToolResult, any, error) {
			return run(ctx, check, types.ActionParams{"device_name": in.DeviceName})
		})
	}

	show := actions.NewCustomShowCommand(runner)
	mcp.AddTool(s.server, tool(show), func(ctx context.Context, _ *mcp.CallToolRequest, in showInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, show, types.ActionParams{"device_name": in.DeviceName, "commands": in.Commands})
	})

	s.server.AddPrompt(&mcp.Prompt{
		Name:        PromptName,
		Description: "Instructions for an agent running device health checks",
	}, func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: "Network health check agent",
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: agentPrompt}},
			},
		}, nil
	})

	s.server.AddResource(&mcp.Resource{
		URI:         DevicesURI,
		Name:        "devices",
		Description: "Testbed inventory with secrets redacted",
		MIMEType:    "application/yaml",
	}, func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		out, err := s.inventory.Testbed().RedactedYAML()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: DevicesURI, MIMEType: "application/yaml", Text: out}},
		}, nil
	})

	return s
}

func tool(a types.Action) *mcp.Tool {
	def := a.Definition()
	return &mcp.Tool{
		Name:        def.Name.String(),
		Description: def.Description,
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: a.ReadOnly()},
	}
}

// run executes the action. Errors are returned to the SDK, which reports
// them to the client as error results.
func run(ctx context.Context, a types.Action, params types.ActionParams) (*mcp.CallToolResult, any, error) {
	name := a.Definition().Name.String()
	xlog.Debug("Healthcheck tool called", "tool", name, "params", params.String())

	res, err := a.Run(ctx, params)
	if err != nil {
		xlog.Error("Healthcheck tool failed", "tool", name, "error", err.Error())
		return nil, nil, err
	}
	text := strings.TrimSpace(res.Result)
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
}

func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Serve speaks newline-delimited JSON-RPC on in and out until ctx is done
// or the client disconnects. Nothing else may write to out while it runs.
func (s *Server) Serve(ctx context.Context, in io.ReadCloser, out io.WriteCloser) error {
	xlog.Info("Starting MCP server", "name", ServerName)
	return s.server.Run(ctx, &mcp.IOTransport{Reader: in, Writer: out})
}

// Connect starts an in-memory session and returns the client end, for
// agents living in the same process.
func (s *Server) Connect(ctx context.Context) (mcp.Transport, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := s.server.Connect(ctx, serverTransport, nil); err != nil {
		return nil, err
	}
	return clientTransport, nil
}
