package insight

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"clinica/internal/core"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIRequester calls a chat completion endpoint. baseURL may point at any
// OpenAI-compatible server.
type OpenAIRequester struct {
	client *openai.Client
	model  string
}

func NewOpenAIRequester(apiKey, model, baseURL string) (*OpenAIRequester, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIRequester{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAIRequester) Analyze(ctx context.Context, list []core.Transaction) (string, error) {
	prompt, err := BuildPrompt(list)
	if err != nil {
		return "", err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
