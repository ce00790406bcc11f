package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/types"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type GenerateReport struct{}

func NewGenerateReport() *GenerateReport {
	return &GenerateReport{}
}

func (g *GenerateReport) Run(_ context.Context, params types.ActionParams) (types.ActionResult, error) {
	var p struct {
		Data string `json:"data"`
	}
	if err := params.Unmarshal(&p); err != nil {
		return types.ActionResult{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return types.ActionResult{Result: "Report generated with the following data: " + p.Data}, nil
}

func (g *GenerateReport) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "generate_report",
		Description: "Generate a report from the provided data",
		Properties: map[string]jsonschema.Definition{
			"data": {
				Type:        jsonschema.String,
				Description: "The data to include in the report",
			},
		},
		Required: []string{"data"},
	}
}

func (g *GenerateReport) ReadOnly() bool { return true }

// DeviceHealth is the health summary of one device.
type DeviceHealth struct {
	Name          string   `json:"name"`
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Uptime        string   `json:"uptime,omitempty"`
	CPUUsage      string   `json:"cpu_usage,omitempty"`
	MemoryUsage   string   `json:"memory_usage,omitempty"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

const StatusReachable = "Reachable"

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// FormatHealthReport renders device health entries as a text report.
func FormatHealthReport(devices []DeviceHealth, notes string) string {
	lines := []string{"Network Devices Health Check Report:", strings.Repeat("=", 35)}
	if notes != "" {
		lines = append([]string{fmt.Sprintf("Overall Status/Notes: %s\n", notes)}, lines...)
	}

	if len(devices) == 0 {
		lines = append(lines, "\nNo device health data was provided to generate the report details.")
	}
	for _, d := range devices {
		lines = append(lines,
			fmt.Sprintf("\nDevice: %s (ID: %s)", orNA(d.Name), orNA(d.ID)),
			fmt.Sprintf("  Status: %s", d.Status),
		)
		if d.Status == StatusReachable {
			lines = append(lines,
				fmt.Sprintf("  Uptime: %s", orNA(d.Uptime)),
				fmt.Sprintf("  CPU Usage: %s", orNA(d.CPUUsage)),
				fmt.Sprintf("  Memory Usage: %s", orNA(d.MemoryUsage)),
			)
		}
		if len(d.ErrorMessages) > 0 {
			lines = append(lines, fmt.Sprintf("  Reported Errors: %s", strings.Join(d.ErrorMessages, "; ")))
		}
	}
	return strings.Join(lines, "\n")
}

type FormatHealthReportAction struct{}

func NewFormatHealthReport() *FormatHealthReportAction {
	return &FormatHealthReportAction{}
}

func (f *FormatHealthReportAction) Run(_ context.Context, params types.ActionParams) (types.ActionResult, error) {
	var p struct {
		HealthDataList     []DeviceHealth `json:"health_data_list"`
		OverallStatusNotes string         `json:"overall_status_notes"`
	}
	if err := params.Unmarshal(&p); err != nil {
		return types.ActionResult{}, fmt.Errorf("health_data_list must be a list of device health objects: %w", err)
	}
	for i := range p.HealthDataList {
		if p.HealthDataList[i].Status == "" {
			p.HealthDataList[i].Status = "Unknown"
		}
	}

	report := FormatHealthReport(p.HealthDataList, p.OverallStatusNotes)
	xlog.Debug("Health report formatted", "devices", len(p.HealthDataList))
	return types.ActionResult{Result: report}, nil
}

func (f *FormatHealthReportAction) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "format_health_report",
		Description: "Format the health status of devices into a report. Returns the report text.",
		Properties: map[string]jsonschema.Definition{
			"health_data_list": {
				Type:        jsonschema.Array,
				Description: "One entry per device",
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"name":           {Type: jsonschema.String},
						"id":             {Type: jsonschema.String, Description: "Management address or serial"},
						"status":         {Type: jsonschema.String, Description: "Reachable, Unreachable or Unknown"},
						"uptime":         {Type: jsonschema.String},
						"cpu_usage":      {Type: jsonschema.String},
						"memory_usage":   {Type: jsonschema.String},
						"error_messages": {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
					},
					Required: []string{"name", "status"},
				},
			},
			"overall_status_notes": {
				Type:        jsonschema.String,
				Description: "Optional summary placed at the top of the report",
			},
		},
		Required: []string{"health_data_list"},
	}
}

func (f *FormatHealthReportAction) ReadOnly() bool { return true }
