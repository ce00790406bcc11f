package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var ErrNoChoices = errors.New("no choices returned by the model")

// JSONOptions tweak a forced function call.
type JSONOptions struct {
	ToolName    string
	Description string
	Temperature float32
}

func GenerateTypedJSONWithGuidance(ctx context.Context, client LLMClient, guidance, model string, i jsonschema.Definition, dst any) error {
	return GenerateTypedJSONWithConversation(ctx, client, []openai.ChatCompletionMessage{
		{
			Role:    "user",
			Content: guidance,
		},
	}, model, i, dst)
}

func GenerateTypedJSONWithConversation(ctx context.Context, client LLMClient, conv []openai.ChatCompletionMessage, model string, i jsonschema.Definition, dst any) error {
	return GenerateTypedJSON(ctx, client, conv, model, i, dst, JSONOptions{ToolName: "json"})
}

// GenerateTypedJSON forces the model to answer through a single function
// call whose parameters follow the given schema, and decodes the arguments
// into dst.
func GenerateTypedJSON(ctx context.Context, client LLMClient, conv []openai.ChatCompletionMessage, model string, i jsonschema.Definition, dst any, opts JSONOptions) error {
	toolName := opts.ToolName
	if toolName == "" {
		toolName = "json"
	}
	decision := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    conv,
		Temperature: opts.Temperature,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        toolName,
					Description: opts.Description,
					Parameters:  i,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, decision)
	if err != nil {
		return err
	}

	if len(resp.Choices) != 1 {
		return fmt.Errorf("%w: %d", ErrNoChoices, len(resp.Choices))
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		return fmt.Errorf("no tool calls: %d", len(msg.ToolCalls))
	}

	xlog.Debug("JSON generated", "tool", toolName, "arguments", msg.ToolCalls[0].Function.Arguments)

	if err := json.Unmarshal([]byte(msg.ToolCalls[0].Function.Arguments), dst); err != nil {
		return fmt.Errorf("decoding %s arguments: %w", toolName, err)
	}
	return nil
}
