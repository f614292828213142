package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/ports"
)

// GeminiClient implements ports.Completer on top of Google Gemini.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient dials the Gemini API with an API key.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}
	return &GeminiClient{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string { return g.model }

// Complete sends the user prompt with the system prompt as instruction.
func (g *GeminiClient) Complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	model := g.client.GenerativeModel(g.model)
	temperature := prompt.Temperature
	if temperature == 0 {
		temperature = g.temperature
	}
	model.SetTemperature(temperature)
	if system := strings.TrimSpace(prompt.System); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// Close releases the underlying connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
