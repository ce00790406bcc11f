package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/config"
	"github.com/netagent/netagent/pkg/inventory"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	CommandCPU       = "show processes cpu | i CPU utilization"
	CommandInterface = "show interface"
	CommandCRC       = "show interfaces | i CRC"
)

// DeviceRunner runs commands on inventory devices.
type DeviceRunner interface {
	Execute(ctx context.Context, device string, commands ...string) (string, error)
	Configure(ctx context.Context, device string, lines []string) (string, error)
}

// Inventory gives access to the current testbed.
type Inventory interface {
	Testbed() *inventory.Testbed
}

var deviceNameProperty = jsonschema.Definition{
	Type:        jsonschema.String,
	Description: "Name of the device in the testbed (e.g. 'CSR1')",
}

var commandsProperty = jsonschema.Definition{
	Type:        jsonschema.Array,
	Items:       &jsonschema.Definition{Type: jsonschema.String},
	Description: "Commands to run, one per item",
}

type deviceParams struct {
	DeviceName string   `json:"device_name"`
	Commands   []string `json:"commands"`
}

func readDeviceParams(params types.ActionParams) (deviceParams, error) {
	var p deviceParams
	if err := params.Unmarshal(&p); err != nil {
		return p, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	p.DeviceName = strings.TrimSpace(p.DeviceName)
	if p.DeviceName == "" {
		return p, errors.New("device_name is required")
	}
	return p, nil
}

type ListDevices struct {
	inventory Inventory
	name      string
}

// NewListDevices lists the testbed devices. name lets the same action be
// exposed under the name the healthcheck tools use.
func NewListDevices(inv Inventory, name string) *ListDevices {
	if name == "" {
		name = "list_devices"
	}
	return &ListDevices{inventory: inv, name: name}
}

func (l *ListDevices) Run(context.Context, types.ActionParams) (types.ActionResult, error) {
	names := l.inventory.Testbed().DeviceNames()
	out, err := json.Marshal(names)
	if err != nil {
		return types.ActionResult{}, err
	}
	return types.ActionResult{
		Result:   string(out),
		Metadata: map[string]interface{}{"devices": names},
	}, nil
}

func (l *ListDevices) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        types.ActionDefinitionName(l.name),
		Description: "List the names of the devices in the testbed",
	}
}

func (l *ListDevices) ReadOnly() bool { return true }

type GetDeviceInfo struct {
	inventory Inventory
}

func NewGetDeviceInfo(inv Inventory) *GetDeviceInfo {
	return &GetDeviceInfo{inventory: inv}
}

func (g *GetDeviceInfo) Run(context.Context, types.ActionParams) (types.ActionResult, error) {
	out, err := g.inventory.Testbed().RedactedYAML()
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("rendering inventory: %w", err)
	}
	return types.ActionResult{Result: out}, nil
}

func (g *GetDeviceInfo) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "get_device_info",
		Description: "Retrieve the inventory of every device: OS, type, management address and username",
	}
}

func (g *GetDeviceInfo) ReadOnly() bool { return true }

// DeviceCheck runs a fixed show command on a device.
type DeviceCheck struct {
	runner      DeviceRunner
	name        string
	description string
	what        string
	command     string
}

func NewCPUChecking(r DeviceRunner) *DeviceCheck {
	return &DeviceCheck{runner: r, name: "cpu_checking", what: "CPU", command: CommandCPU,
		description: "Check the CPU utilization of a device"}
}

func NewInterfaceChecking(r DeviceRunner) *DeviceCheck {
	return &DeviceCheck{runner: r, name: "interface_checking", what: "interface", command: CommandInterface,
		description: "Show the status and counters of every interface of a device"}
}

func NewCRCChecking(r DeviceRunner) *DeviceCheck {
	return &DeviceCheck{runner: r, name: "crc_checking", what: "CRC", command: CommandCRC,
		description: "Show the CRC error counters of every interface of a device"}
}

func (d *DeviceCheck) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	p, err := readDeviceParams(params)
	if err != nil {
		return types.ActionResult{}, err
	}
	out, err := d.runner.Execute(ctx, p.DeviceName, d.command)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("error checking %s: %w", d.what, err)
	}
	return types.ActionResult{
		Result:   out,
		Metadata: map[string]interface{}{"device": p.DeviceName, "command": d.command},
	}, nil
}

func (d *DeviceCheck) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        types.ActionDefinitionName(d.name),
		Description: d.description,
		Properties:  map[string]jsonschema.Definition{"device_name": deviceNameProperty},
		Required:    []string{"device_name"},
	}
}

func (d *DeviceCheck) ReadOnly() bool { return true }

type CustomShowCommand struct {
	runner DeviceRunner
}

func NewCustomShowCommand(r DeviceRunner) *CustomShowCommand {
	return &CustomShowCommand{runner: r}
}

func isShowCommand(cmd string) bool {
	fields := strings.Fields(strings.ToLower(cmd))
	return len(fields) > 0 && (fields[0] == "show" || fields[0] == "sh")
}

func (c *CustomShowCommand) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	p, err := readDeviceParams(params)
	if err != nil {
		return types.ActionResult{}, err
	}
	if len(p.Commands) == 0 {
		return types.ActionResult{}, errors.New("at least one command is required")
	}
	for _, cmd := range p.Commands {
		if !isShowCommand(cmd) {
			return types.ActionResult{}, fmt.Errorf("only show commands are allowed, got %q", cmd)
		}
	}

	out, err := c.runner.Execute(ctx, p.DeviceName, p.Commands...)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("error checking custom show command: %w", err)
	}
	return types.ActionResult{Result: out}, nil
}

func (c *CustomShowCommand) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "custom_show_command",
		Description: "Run show commands on a device. Only commands starting with 'show' are accepted.",
		Properties: map[string]jsonschema.Definition{
			"device_name": deviceNameProperty,
			"commands":    commandsProperty,
		},
		Required: []string{"device_name", "commands"},
	}
}

func (c *CustomShowCommand) ReadOnly() bool { return true }

// destructive lists command prefixes refused by configure_device unless
// allow_destructive is set.
var destructive = []string{"reload", "erase", "write erase", "format", "delete", "no interface", "crypto key zeroize"}

type ConfigureDevice struct {
	runner           DeviceRunner
	allowDestructive bool
}

func NewConfigureDevice(r DeviceRunner, cfg map[string]string) *ConfigureDevice {
	return &ConfigureDevice{runner: r, allowDestructive: cfg["allow_destructive"] == "true"}
}

func (c *ConfigureDevice) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	p, err := readDeviceParams(params)
	if err != nil {
		return types.ActionResult{}, err
	}

	lines := make([]string, 0, len(p.Commands))
	for _, l := range p.Commands {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lower := strings.ToLower(l)
		if lower == "configure terminal" || lower == "conf t" || lower == "end" {
			continue
		}
		if !c.allowDestructive {
			for _, d := range destructive {
				if strings.HasPrefix(lower, d) {
					return types.ActionResult{}, fmt.Errorf("refusing destructive command %q", l)
				}
			}
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return types.ActionResult{}, errors.New("no configuration lines given")
	}

	out, err := c.runner.Configure(ctx, p.DeviceName, lines)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("error configuring device: %w", err)
	}
	return types.ActionResult{
		Result:   out,
		Metadata: map[string]interface{}{"device": p.DeviceName, "lines": lines},
	}, nil
}

func (c *ConfigureDevice) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "configure_device",
		Description: "Apply configuration lines to a device in configuration mode. Do not include 'configure terminal' or 'end'.",
		Properties: map[string]jsonschema.Definition{
			"device_name": deviceNameProperty,
			"commands":    commandsProperty,
		},
		Required: []string{"device_name", "commands"},
	}
}

func (c *ConfigureDevice) ReadOnly() bool { return false }

func ConfigureDeviceConfigMeta() []config.Field {
	return []config.Field{
		{
			Name:         "allow_destructive",
			Label:        "Allow destructive commands",
			Type:         config.FieldTypeCheckbox,
			DefaultValue: "false",
			HelpText:     "Allow reload, erase, format and similar commands",
		},
	}
}
