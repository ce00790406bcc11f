package services

import (
	"fmt"
	"os"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/conversations"
	"github.com/netagent/netagent/core/state"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/config"
	"github.com/netagent/netagent/services/actions"
)

const (
	// Actions
	ActionListDevices         = "list_devices"
	ActionGetDeviceInfo       = "get_device_info"
	ActionCustomShowCommand   = "custom_show_command"
	ActionConfigureDevice     = "configure_device"
	ActionCPUChecking         = "cpu_checking"
	ActionInterfaceChecking   = "interface_checking"
	ActionCRCChecking         = "crc_checking"
	ActionGenerateReport      = "generate_report"
	ActionFormatHealthReport  = "format_health_report"
	ActionSendSlackMessage    = "send_slack_message"
	ActionSendTelegramMessage = "send_telegram_message"
	ActionTelegramConnect     = "telegram_connect"
	ActionTelegramGetUpdates  = "telegram_get_updates"
	ActionWebhook             = "webhook"
)

var AvailableActions = []string{
	ActionListDevices,
	ActionGetDeviceInfo,
	ActionCustomShowCommand,
	ActionConfigureDevice,
	ActionCPUChecking,
	ActionInterfaceChecking,
	ActionCRCChecking,
	ActionGenerateReport,
	ActionFormatHealthReport,
	ActionSendSlackMessage,
	ActionSendTelegramMessage,
	ActionTelegramConnect,
	ActionTelegramGetUpdates,
	ActionWebhook,
}

// Deps are the shared runtime objects actions are built on.
type Deps struct {
	Devices   actions.DeviceRunner
	Inventory actions.Inventory
	Inbox     *conversations.Inbox
}

// Actions returns the factory the team uses to build the tools of each
// agent. Actions that cannot be created are logged and skipped.
func Actions(deps Deps) func(*state.AgentConfig) []types.Action {
	return func(a *state.AgentConfig) []types.Action {
		allActions := []types.Action{}

		for _, ac := range a.Actions {
			action, err := Action(ac.Name, ac.Config, deps)
			if err != nil {
				xlog.Error("Error creating action", "agent", a.Name, "action", ac.Name, "error", err.Error())
				continue
			}
			allActions = append(allActions, action)
		}

		return allActions
	}
}

func Action(name string, cfg map[string]string, deps Deps) (types.Action, error) {
	cfg = resolveConfig(name, cfg)

	needsDevices := func() error {
		if deps.Devices == nil {
			return fmt.Errorf("action %s needs a device runner", name)
		}
		return nil
	}
	needsInventory := func() error {
		if deps.Inventory == nil {
			return fmt.Errorf("action %s needs a testbed", name)
		}
		return nil
	}

	var a types.Action
	var err error

	switch name {
	case ActionListDevices:
		if err = needsInventory(); err == nil {
			a = actions.NewListDevices(deps.Inventory, "")
		}
	case ActionGetDeviceInfo:
		if err = needsInventory(); err == nil {
			a = actions.NewGetDeviceInfo(deps.Inventory)
		}
	case ActionCustomShowCommand:
		if err = needsDevices(); err == nil {
			a = actions.NewCustomShowCommand(deps.Devices)
		}
	case ActionConfigureDevice:
		if err = needsDevices(); err == nil {
			a = actions.NewConfigureDevice(deps.Devices, cfg)
		}
	case ActionCPUChecking:
		if err = needsDevices(); err == nil {
			a = actions.NewCPUChecking(deps.Devices)
		}
	case ActionInterfaceChecking:
		if err = needsDevices(); err == nil {
			a = actions.NewInterfaceChecking(deps.Devices)
		}
	case ActionCRCChecking:
		if err = needsDevices(); err == nil {
			a = actions.NewCRCChecking(deps.Devices)
		}
	case ActionGenerateReport:
		a = actions.NewGenerateReport()
	case ActionFormatHealthReport:
		a = actions.NewFormatHealthReport()
	case ActionSendSlackMessage:
		a, err = actions.NewSendSlackMessage(cfg)
	case ActionSendTelegramMessage:
		a, err = actions.NewSendTelegramMessageRunner(cfg)
	case ActionTelegramConnect:
		a, err = actions.NewTelegramConnect(cfg)
	case ActionTelegramGetUpdates:
		a = actions.NewTelegramGetUpdates(deps.Inbox)
	case ActionWebhook:
		a, err = actions.NewWebhook(cfg)
	default:
		return nil, fmt.Errorf("action %q not found", name)
	}

	if err != nil {
		return nil, err
	}

	return a, nil
}

// resolveConfig layers the explicit configuration over the environment and
// over the field defaults.
func resolveConfig(name string, cfg map[string]string) map[string]string {
	fields := actionFields(name)
	out := config.Defaults(fields)
	for _, f := range fields {
		if f.Env == "" {
			continue
		}
		if v := os.Getenv(f.Env); v != "" {
			out[f.Name] = v
		}
	}
	for k, v := range cfg {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func actionFields(name string) []config.Field {
	switch name {
	case ActionConfigureDevice:
		return actions.ConfigureDeviceConfigMeta()
	case ActionSendSlackMessage:
		return actions.SendSlackMessageConfigMeta()
	case ActionSendTelegramMessage:
		return actions.SendTelegramMessageConfigMeta()
	case ActionTelegramConnect:
		return actions.TelegramConnectConfigMeta()
	case ActionWebhook:
		return actions.WebhookConfigMeta()
	}
	return []config.Field{}
}

// ActionsConfigMeta describes every action kind and its configuration.
func ActionsConfigMeta() []config.ActionMeta {
	return []config.ActionMeta{
		{Name: ActionListDevices, Label: "List devices", Description: "Names of the testbed devices", Fields: actionFields(ActionListDevices)},
		{Name: ActionGetDeviceInfo, Label: "Device information", Description: "Testbed inventory with secrets redacted", Fields: actionFields(ActionGetDeviceInfo)},
		{Name: ActionCustomShowCommand, Label: "Custom show command", Description: "Run show commands over SSH", Fields: actionFields(ActionCustomShowCommand)},
		{Name: ActionConfigureDevice, Label: "Configure device", Description: "Apply configuration lines over SSH", Fields: actionFields(ActionConfigureDevice)},
		{Name: ActionCPUChecking, Label: "CPU check", Description: actions.CommandCPU, Fields: actionFields(ActionCPUChecking)},
		{Name: ActionInterfaceChecking, Label: "Interface check", Description: actions.CommandInterface, Fields: actionFields(ActionInterfaceChecking)},
		{Name: ActionCRCChecking, Label: "CRC check", Description: actions.CommandCRC, Fields: actionFields(ActionCRCChecking)},
		{Name: ActionGenerateReport, Label: "Generate report", Fields: actionFields(ActionGenerateReport)},
		{Name: ActionFormatHealthReport, Label: "Format health report", Fields: actionFields(ActionFormatHealthReport)},
		{Name: ActionSendSlackMessage, Label: "Send Slack message", Fields: actionFields(ActionSendSlackMessage)},
		{Name: ActionSendTelegramMessage, Label: "Send Telegram message", Fields: actionFields(ActionSendTelegramMessage)},
		{Name: ActionTelegramConnect, Label: "Telegram connect", Fields: actionFields(ActionTelegramConnect)},
		{Name: ActionTelegramGetUpdates, Label: "Telegram updates", Description: "Latest message received by the bot", Fields: actionFields(ActionTelegramGetUpdates)},
		{Name: ActionWebhook, Label: "Webhook", Description: "Outbound HTTP request", Fields: actionFields(ActionWebhook)},
	}
}
