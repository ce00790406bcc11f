package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
)

// GeminiClient serves chat completions from the Gemini API, translating
// OpenAI-shaped requests (messages, tools, forced tool choice) to genai.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	gc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient(),
	}
	if cfg.BaseURL != "" {
		gc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, gc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	contents, system, err := toGeminiContents(req.Messages)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Temperature != 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			if t.Function == nil {
				continue
			}
			decl, err := toGeminiDeclaration(t.Function)
			if err != nil {
				return openai.ChatCompletionResponse{}, err
			}
			decls = append(decls, decl)
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if choice, ok := req.ToolChoice.(openai.ToolChoice); ok && choice.Function.Name != "" {
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{choice.Function.Name},
			},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	return fromGeminiResponse(req.Model, resp)
}

func toGeminiContents(messages []openai.ChatCompletionMessage) ([]*genai.Content, string, error) {
	var system []string
	contents := []*genai.Content{}
	toolNames := map[string]string{}

	for _, m := range messages {
		switch m.Role {
		case openai.ChatMessageRoleSystem:
			system = append(system, m.Content)
		case openai.ChatMessageRoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return nil, "", fmt.Errorf("decoding arguments of %s: %w", tc.Function.Name, err)
					}
				}
				toolNames[tc.ID] = tc.Function.Name
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				}})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case openai.ChatMessageRoleTool:
			name := m.Name
			if name == "" {
				name = toolNames[m.ToolCallID]
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     name,
					Response: map[string]any{"output": m.Content},
				}}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	return contents, strings.Join(system, "\n\n"), nil
}

// toGeminiDeclaration leaves Parameters unset for tools without
// properties: Gemini refuses an object schema with no properties.
func toGeminiDeclaration(fn *openai.FunctionDefinition) (*genai.FunctionDeclaration, error) {
	schema, err := toGeminiSchema(fn.Parameters)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", fn.Name, err)
	}
	if schema != nil && schema.Type == genai.TypeObject && len(schema.Properties) == 0 {
		schema = nil
	}
	return &genai.FunctionDeclaration{
		Name:        fn.Name,
		Description: fn.Description,
		Parameters:  schema,
	}, nil
}

// toGeminiSchema accepts whatever was put in FunctionDefinition.Parameters
// (a jsonschema.Definition, a raw JSON schema from an MCP server, a map) and
// converts it through its JSON form.
func toGeminiSchema(parameters any) (*genai.Schema, error) {
	if parameters == nil {
		return nil, nil
	}
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}
	var def jsonschema.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decoding parameters schema: %w", err)
	}
	return convertDefinition(def), nil
}

func convertDefinition(def jsonschema.Definition) *genai.Schema {
	s := &genai.Schema{
		Type:        geminiType(def.Type),
		Description: def.Description,
		Enum:        def.Enum,
		Required:    def.Required,
	}
	if len(def.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(def.Properties))
		for name, p := range def.Properties {
			s.Properties[name] = convertDefinition(p)
		}
	}
	if def.Items != nil {
		s.Items = convertDefinition(*def.Items)
	}
	return s
}

func geminiType(t jsonschema.DataType) genai.Type {
	switch t {
	case jsonschema.String:
		return genai.TypeString
	case jsonschema.Number:
		return genai.TypeNumber
	case jsonschema.Integer:
		return genai.TypeInteger
	case jsonschema.Boolean:
		return genai.TypeBoolean
	case jsonschema.Array:
		return genai.TypeArray
	case jsonschema.Object, "":
		return genai.TypeObject
	}
	return genai.TypeString
}

func fromGeminiResponse(model string, resp *genai.GenerateContentResponse) (openai.ChatCompletionResponse, error) {
	out := openai.ChatCompletionResponse{Model: model}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	var text []string
	for i, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text = append(text, part.Text)
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return out, fmt.Errorf("encoding arguments of %s: %w", part.FunctionCall.Name, err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, part.FunctionCall.Name)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	msg.Content = strings.Join(text, "")

	finish := openai.FinishReasonStop
	if len(msg.ToolCalls) > 0 {
		finish = openai.FinishReasonToolCalls
	}
	out.Choices = []openai.ChatCompletionChoice{{Index: 0, Message: msg, FinishReason: finish}}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = openai.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
