package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Rewriter turns a prompt pair into rewritten card text. Implementations
// wrap one external text-generation service.
type Rewriter interface {
	Rewrite(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeminiRewriter rewrites card text through the Gemini API.
type GeminiRewriter struct {
	client *genai.Client
	model  string
}

// NewGeminiRewriter builds a rewriter for the given model. The API key
// comes from configuration, not from this package.
func NewGeminiRewriter(ctx context.Context, apiKey, model string) (*GeminiRewriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiRewriter{client: client, model: model}, nil
}

func (g *GeminiRewriter) Rewrite(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(userPrompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
