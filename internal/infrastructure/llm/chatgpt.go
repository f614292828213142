package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/infrastructure/httpjson"
	"NewsletterBuilder/internal/ports"
)

// ChatGPTClient implements ports.Completer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	systemPrompt string
	temperature  float32
	http         *httpjson.Client
}

var _ ports.Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig, client *http.Client) (*ChatGPTClient, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.Model == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		http:         httpjson.New(client).WithBearer(cfg.APIKey),
	}, nil
}

// Model returns the configured model name.
func (c *ChatGPTClient) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete posts the prompt as a system+user conversation and returns the
// first choice.
func (c *ChatGPTClient) Complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	system := prompt.System
	if strings.TrimSpace(system) == "" {
		system = c.systemPrompt
	}
	temperature := prompt.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	var resp chatResponse
	err := c.http.Post(ctx, c.endpoint, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(system)},
			{Role: "user", Content: prompt.User},
		},
		Temperature: temperature,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chatgpt completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chatgpt returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant that writes a personal newsletter."
	}
	return prompt
}
