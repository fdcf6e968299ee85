package openaiLLM

import (
	"context"
	"fmt"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/rag/llm"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	openAi *openai.Client
	model  string
	logger *logger_i.Logger
}

// NewClient builds the chat-completion provider. baseURL is optional and lets
// the same client talk to OpenAI-compatible gateways.
func NewClient(apiKey string, baseURL string) (llm.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai llm: missing api key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)

	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI chat client created", "model", config.ChatModel)
	return &llmClient{openAi: &c, model: config.ChatModel, logger: logger}, nil
}

func (c *llmClient) Generate(ctx context.Context, query string, contextBlock string) (string, error) {
	userPrompt := fmt.Sprintf("Context: %s\nQuestion:\n%s", contextBlock, query)

	completion, err := c.openAi.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.SystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(config.ModelTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
