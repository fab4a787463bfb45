package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// Client performs a single system+user completion. Implementations never retry;
// callers decide what a failure means for the user.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ErrEmptyResponse is returned when the provider answers without a text choice.
var ErrEmptyResponse = errors.New("llm returned no content")

// New creates a Client for cfg.Provider. Defaults to OpenAI when no provider is set.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func Temp(t float64) *float64 {
	return &t
}

func logCompletion(ctx context.Context, model string, durationMs int64, promptTokens, completionTokens int64) {
	slog.DebugContext(ctx, "llm completion finished",
		"model", model,
		"duration_ms", durationMs,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens)
}
