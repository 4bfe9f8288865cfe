package invoker

import (
	"context"

	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/pkg/gemini"
	"github.com/convocatorias-pro/search-service/pkg/openrouter"
)

// OpenRouterProvider adapts the OpenRouter client to the Provider interface.
type OpenRouterProvider struct {
	client openrouter.Client
}

// NewOpenRouterProvider wraps an OpenRouter client.
func NewOpenRouterProvider(c openrouter.Client) *OpenRouterProvider {
	return &OpenRouterProvider{client: c}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

func (p *OpenRouterProvider) Generate(ctx context.Context, modelID string, pr prompt.Prompt, cfg GenerationConfig) (string, error) {
	resp, err := p.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model: modelID,
		Messages: []openrouter.Message{
			{Role: "system", Content: pr.System},
			{Role: "user", Content: pr.User},
		},
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
		TopP:        &cfg.TopP,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiProvider adapts the Gemini client to the Provider interface.
type GeminiProvider struct {
	client gemini.Client
}

// NewGeminiProvider wraps a Gemini client.
func NewGeminiProvider(c gemini.Client) *GeminiProvider {
	return &GeminiProvider{client: c}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, modelID string, pr prompt.Prompt, cfg GenerationConfig) (string, error) {
	resp, err := p.client.GenerateContent(ctx, modelID, gemini.GenerateContentRequest{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: pr.System}}},
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: pr.User}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &cfg.Temperature,
			MaxOutputTokens: &cfg.MaxTokens,
			TopP:            &cfg.TopP,
			TopK:            &cfg.TopK,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
