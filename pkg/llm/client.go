package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// LLMClient is the subset of the OpenAI chat API the agents use. Every
// provider is adapted to it.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultTimeout = 150 * time.Second
)

// Config selects and configures a provider. Timeout is a Go duration;
// anything unparsable falls back to 150s.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  string
}

func (c Config) httpClient() *http.Client {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// New returns the client for cfg.Provider. An empty provider means OpenAI.
func New(ctx context.Context, cfg Config) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg), nil
	case ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}

// NewOpenAIClient targets any OpenAI-compatible endpoint. Local servers
// often need no key, but the library insists on one.
func NewOpenAIClient(cfg Config) *openai.Client {
	key := cfg.APIKey
	if key == "" {
		key = "sk-xxx"
	}
	config := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = cfg.httpClient()
	return openai.NewClientWithConfig(config)
}
