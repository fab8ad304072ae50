// Package ai wraps the OpenAI-compatible text-generation collaborator.
// The same client covers both a hosted OpenAI endpoint and a local
// Ollama server exposed at its /v1 base URL.
package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"studyflow/internal/apperr"
)

// Provider names accepted from configuration and request headers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Client wraps an OpenAI-compatible API client for one provider/model
// pair. It is passed explicitly to every caller that needs generation;
// there is no ambient default instance.
type Client struct {
	api      *openai.Client
	model    string
	provider string
}

// New creates a Client. An empty baseURL keeps the library default
// (the hosted OpenAI endpoint).
func New(baseURL, apiKey, model, provider string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:      openai.NewClientWithConfig(config),
		model:    model,
		provider: provider,
	}
}

// Provider returns the provider name ("openai" or "ollama").
func (c *Client) Provider() string { return c.provider }

// Model returns the model name requests are issued against.
func (c *Client) Model() string { return c.model }

// Generate sends one prompt with an optional system instruction and
// returns the raw response text. Calls can take tens of seconds; the
// context is the only cancellation the collaborator honors.
func (c *Client) Generate(ctx context.Context, prompt, system string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("AI API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ping verifies the endpoint is reachable and the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("AI health check: %w", err)
	}
	return nil
}

// ListModels returns the model names the endpoint advertises.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// Config holds the configured defaults for building per-request clients.
type Config struct {
	DefaultProvider string
	OllamaURL       string
	OllamaModel     string
	OpenAIURL       string
	OpenAIModel     string
	OpenAIKey       string
}

// ForRequest builds a Client for one request, honoring the caller's
// provider/model/key selection and falling back to configured defaults.
func ForRequest(cfg Config, provider, model, apiKey string) (*Client, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = cfg.DefaultProvider
	}

	switch provider {
	case ProviderOllama, "llama":
		m := model
		if m == "" {
			m = cfg.OllamaModel
		}
		return New(cfg.OllamaURL, "ollama", m, ProviderOllama), nil
	case ProviderOpenAI:
		key := apiKey
		if key == "" {
			key = cfg.OpenAIKey
		}
		if err := validateOpenAIKey(key); err != nil {
			return nil, err
		}
		m := model
		if m == "" {
			m = cfg.OpenAIModel
		}
		return New(cfg.OpenAIURL, key, m, ProviderOpenAI), nil
	default:
		return nil, apperr.New(apperr.CodeInvalidRequest, "unknown AI provider %q", provider)
	}
}

func validateOpenAIKey(key string) error {
	if len(key) < 20 {
		return apperr.New(apperr.CodeInvalidRequest, "OpenAI API key is missing or too short")
	}
	if !strings.HasPrefix(key, "sk-") {
		return apperr.New(apperr.CodeInvalidRequest, "OpenAI API key must start with 'sk-'")
	}
	return nil
}
