package insight

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"clinica/internal/core"
)

const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiRequester calls the Generative Language API with an API key.
type GeminiRequester struct {
	svc   *genai.Service
	model string
}

// NewGeminiRequester builds a client for model. Extra options are appended
// after the key, which lets tests point the client at a local server.
func NewGeminiRequester(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiRequester, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := genai.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}
	return &GeminiRequester{svc: svc, model: model}, nil
}

func (g *GeminiRequester) Analyze(ctx context.Context, list []core.Transaction) (string, error) {
	prompt, err := BuildPrompt(list)
	if err != nil {
		return "", err
	}

	req := &genai.GenerateContentRequest{
		Contents: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemInstruction}},
		},
	}

	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return geminiText(resp), nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
