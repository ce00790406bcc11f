package types

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ActionParams are the decoded arguments of a tool call.
type ActionParams map[string]any

// ParseActionParams decodes the arguments the model sent with a tool call.
// Tools without parameters may be called with "" or "null".
func ParseActionParams(arguments string) (ActionParams, error) {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" || arguments == "null" {
		return ActionParams{}, nil
	}
	params := ActionParams{}
	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// Unmarshal copies the params into v through their JSON form.
func (p ActionParams) Unmarshal(v any) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (p ActionParams) String() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ActionResult is the outcome of a tool call. Only Result is shown to the
// model; Metadata is for callers and logs.
type ActionResult struct {
	Result   string
	Metadata map[string]any
}

type ActionDefinitionName string

func (n ActionDefinitionName) String() string {
	return string(n)
}

// ActionDefinition is the function signature a tool advertises.
type ActionDefinition struct {
	Name        ActionDefinitionName
	Description string
	Properties  map[string]jsonschema.Definition
	Required    []string
}

// Tool renders the definition as an OpenAI function tool. Parameters are
// always an object schema, even for tools without properties.
func (d ActionDefinition) Tool() openai.Tool {
	properties := d.Properties
	if properties == nil {
		properties = map[string]jsonschema.Definition{}
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        d.Name.String(),
			Description: d.Description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: properties,
				Required:   d.Required,
			},
		},
	}
}

// Action is a tool a specialist agent can call.
type Action interface {
	Run(ctx context.Context, params ActionParams) (ActionResult, error)
	Definition() ActionDefinition
	// ReadOnly reports that the action changes nothing on devices or
	// in the outside world.
	ReadOnly() bool
}

type Actions []Action

func (a Actions) Tools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(a))
	for _, action := range a {
		tools = append(tools, action.Definition().Tool())
	}
	return tools
}

// Find returns the action called name, or nil.
func (a Actions) Find(name string) Action {
	for _, action := range a {
		if action.Definition().Name.String() == name {
			return action
		}
	}
	return nil
}

func (a Actions) Names() []string {
	names := make([]string, 0, len(a))
	for _, action := range a {
		names = append(names, action.Definition().Name.String())
	}
	return names
}
