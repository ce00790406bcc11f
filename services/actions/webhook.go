package actions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/netagent/netagent/core/types"
	"github.com/netagent/netagent/pkg/config"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// NewWebhook builds an outbound HTTP call, e.g. to a chat-ops or ticketing
// endpoint.
func NewWebhook(cfg map[string]string) (*WebhookAction, error) {
	wa := &WebhookAction{
		url:         strings.TrimSpace(cfg["url"]),
		method:      strings.ToUpper(strings.TrimSpace(cfg["method"])),
		contentType: strings.TrimSpace(cfg["contentType"]),
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	if wa.url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if wa.method == "" {
		wa.method = http.MethodPost
	}
	if tmpl := cfg["payloadTemplate"]; tmpl != "" {
		// the payload func is replaced per call
		t, err := template.New("payload").Funcs(sprig.FuncMap()).
			Funcs(template.FuncMap{"payload": func() string { return "" }}).Parse(tmpl)
		if err != nil {
			return nil, fmt.Errorf("invalid payloadTemplate: %w", err)
		}
		wa.template = t
	}
	return wa, nil
}

type WebhookAction struct {
	url         string
	method      string
	contentType string
	template    *template.Template
	client      *http.Client
}

func (a *WebhookAction) body(payload string) (string, error) {
	if a.template == nil {
		return payload, nil
	}
	t, err := a.template.Clone()
	if err != nil {
		return "", err
	}
	t.Funcs(template.FuncMap{"payload": func() string { return payload }})
	var buf bytes.Buffer
	if err := t.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (a *WebhookAction) Run(ctx context.Context, params types.ActionParams) (types.ActionResult, error) {
	var in struct {
		Payload string `json:"payload"`
	}
	if err := params.Unmarshal(&in); err != nil {
		return types.ActionResult{}, err
	}

	payload, err := a.body(in.Payload)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("rendering payload: %w", err)
	}

	var body io.Reader
	if a.method != http.MethodGet && payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, a.method, a.url, body)
	if err != nil {
		return types.ActionResult{}, err
	}
	if a.contentType != "" {
		req.Header.Set("Content-Type", a.contentType)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return types.ActionResult{}, err
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	respBody := string(respBytes)
	if len(respBody) > 4096 {
		respBody = respBody[:4096] + "... (truncated)"
	}
	if respBody == "" {
		respBody = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return types.ActionResult{}, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
	}

	return types.ActionResult{
		Result:   respBody,
		Metadata: map[string]interface{}{"statusCode": resp.StatusCode},
	}, nil
}

func (a *WebhookAction) Definition() types.ActionDefinition {
	return types.ActionDefinition{
		Name:        "webhook",
		Description: "Send an HTTP request to the configured endpoint with a payload",
		Properties: map[string]jsonschema.Definition{
			"payload": {
				Type:        jsonschema.String,
				Description: "Body to send. When a payload template is configured it is available as {{payload}}.",
			},
		},
	}
}

func (a *WebhookAction) ReadOnly() bool { return false }

func WebhookConfigMeta() []config.Field {
	return []config.Field{
		{
			Name:     "url",
			Label:    "URL",
			Type:     config.FieldTypeText,
			Required: true,
			HelpText: "Destination URL for the webhook",
		},
		{
			Name:  "method",
			Label: "HTTP Method",
			Type:  config.FieldTypeSelect,
			Options: []config.FieldOption{
				{Value: http.MethodGet, Label: "GET"},
				{Value: http.MethodPost, Label: "POST"},
				{Value: http.MethodPut, Label: "PUT"},
			},
			DefaultValue: http.MethodPost,
			HelpText:     "HTTP method to use",
		},
		{
			Name:  "contentType",
			Label: "Content Type",
			Type:  config.FieldTypeSelect,
			Options: []config.FieldOption{
				{Value: "application/json", Label: "application/json"},
				{Value: "text/plain", Label: "text/plain"},
			},
			HelpText: "Content-Type header to send",
		},
		{
			Name:     "payloadTemplate",
			Label:    "Payload Template",
			Type:     config.FieldTypeTextarea,
			HelpText: "Go template for the request body, {{payload}} is the runtime payload and sprig functions are available",
		},
	}
}
