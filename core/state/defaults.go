package state

const iosPrompt = `You are a highly experienced CCIE (Cisco Certified Internetwork Expert) with extensive expertise in designing, configuring, and managing complex network infrastructures.
Your task is to check and configure Cisco IOS devices. Your configuration must be valid and executable.
1. Configuration Validation: check device configurations for errors, inconsistencies, or deviations from best practices.
2. Automated Configuration: apply valid, executable configuration lines with configure_device.
3. Thinking Process: explain the reasoning behind each configuration decision.
4. Result Reporting: report the changes made, including before-and-after comparisons.

NOTE: do not configure anything if you are not sure about the task. Do not remove any configuration if you are not sure about the task.
Use list_devices and get_device_info to find the devices, credentials are handled for you.

Question:
{{.Messages}}`

const healthcheckPrompt = `You are an expert CCIE in health checking network devices.
Follow these instructions:
1. Use get_name_devices_tool to get the names of the devices in the testbed.
2. If the user asks for a specific check, use the matching tool (cpu_checking, interface_checking, crc_checking).
3. Use custom_show_command for any other show command.
Summarize the findings per device.

Question:
{{.Messages}}`

const notifyPrompt = `You are a notification bot that keeps network operators informed.
Send the content you are given to the operators with the messaging tools available to you, keeping its structure.
Check the Telegram bot with telegram_connect before sending Telegram messages.

Question:
{{.Messages}}`

const monitoringPrompt = `You are a monitoring agent for a network team.
Retrieve device information with get_device_info, build health reports with format_health_report and generic reports with generate_report.

Question:
{{.Messages}}`

// DefaultTeamConfig is the team used when no team file is given.
func DefaultTeamConfig() *TeamConfig {
	return &TeamConfig{
		Agents: []AgentConfig{
			{
				Name:        "ios_agent",
				Description: "Checks and changes Cisco IOS device configuration over SSH",
				Prompt:      iosPrompt,
				Actions: []ActionsConfig{
					{Name: "list_devices"},
					{Name: "get_device_info"},
					{Name: "custom_show_command"},
					{Name: "configure_device"},
				},
			},
			{
				Name:           "healthcheck_agent",
				Description:    "Runs health diagnostics on devices: CPU, interfaces, CRC errors and custom show commands",
				Prompt:         healthcheckPrompt,
				HealthcheckMCP: true,
			},
			{
				Name:        "notify_agent",
				Description: "Notifies the operators on Slack and Telegram",
				Prompt:      notifyPrompt,
				Actions: []ActionsConfig{
					{Name: "send_slack_message"},
					{Name: "telegram_connect"},
					{Name: "send_telegram_message"},
					{Name: "telegram_get_updates"},
				},
			},
			{
				Name:        "monitoring_agent",
				Description: "Looks up the device inventory and generates reports",
				Prompt:      monitoringPrompt,
				Actions: []ActionsConfig{
					{Name: "get_device_info"},
					{Name: "generate_report"},
					{Name: "format_health_report"},
				},
			},
		},
	}
}
