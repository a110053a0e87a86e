package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyCompletion = errors.New("llm returned no content")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) ChatMessage {
	return ChatMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

func User(content string) ChatMessage {
	return ChatMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

func Assistant(content string) ChatMessage {
	return ChatMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Completer produces one chat completion.
type Completer interface {
	Complete(ctx context.Context, preset Preset, messages []ChatMessage) (string, error)
}

type OpenAICompatibleClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAICompatibleClient talks to any server exposing /chat/completions
// (OpenAI, LM Studio, Ollama, vLLM).
func NewOpenAICompatibleClient(cfg ChatConfig) *OpenAICompatibleClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: timeout,
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, preset Preset, messages []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         toOpenAIMessages(messages),
		Temperature:      preset.Temperature,
		TopP:             preset.TopP,
		MaxTokens:        preset.MaxTokens,
		PresencePenalty:  preset.PresencePenalty,
		FrequencyPenalty: preset.FrequencyPenalty,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm %s completion failed: %w", preset.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// Ping lists models to confirm the server is reachable.
func (c *OpenAICompatibleClient) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("llm list models failed: %w", err)
	}
	return nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
