package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ChatClient abstracts the text-generation capability the summary service
// needs.
type ChatClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// GeminiChatClient adapts the genai SDK to the ChatClient interface.
type GeminiChatClient struct {
	client *genai.Client
	model  string
}

// NewGeminiChatClient creates a ChatClient backed by Gemini.
func NewGeminiChatClient(ctx context.Context, apiKey, model string) (ChatClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiChatClient{client: client, model: model}, nil
}

func (g *GeminiChatClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}

func (g *GeminiChatClient) Model() string {
	return g.model
}
