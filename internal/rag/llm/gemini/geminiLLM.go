package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/rag/llm"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewClient builds the Gemini provider, selected when LLM_PROVIDER=gemini.
func NewClient(ctx context.Context, apiKey string, modelName string) (llm.Provider, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}, nil
}

func (c *llmClient) Generate(ctx context.Context, query string, contextBlock string) (string, error) {
	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: config.SystemPrompt},
		},
	}
	userPrompt := fmt.Sprintf("Context: %s\nQuestion:\n%s", contextBlock, query)

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(userPrompt), contentConfig)
	if err != nil && doRetry(err, c.logger) {
		time.Sleep(5 * time.Second)
		result, err = c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(userPrompt), contentConfig)
	}
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	return result.Text(), nil
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			log.Error("Rate limit hit", "error", err)
			return true
		}
	}
	return false
}
