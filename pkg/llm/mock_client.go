package llm

import (
	"context"
	"sync"

	"github.com/sashabaranov/go-openai"
)

type MockClient struct {
	CreateChatCompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

func (m *MockClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CreateChatCompletionFunc != nil {
		return m.CreateChatCompletionFunc(ctx, req)
	}
	return openai.ChatCompletionResponse{}, nil
}

// Requests returns every request received so far.
func (m *MockClient) Requests() []openai.ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]openai.ChatCompletionRequest{}, m.requests...)
}

// ToolCallResponse builds a single-choice response carrying one tool call.
func ToolCallResponse(name, arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_" + name,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      name,
						Arguments: arguments,
					},
				}},
			},
		}},
	}
}

// TextResponse builds a single-choice response with plain content.
func TextResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
		}},
	}
}
