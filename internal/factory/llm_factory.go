// Package factory builds the configured adapter implementations.
package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/generative-ai-go/genai"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mailsift/mailsift/internal/adapters/bedrock"
	"github.com/mailsift/mailsift/internal/adapters/gemini"
	"github.com/mailsift/mailsift/internal/adapters/openai"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
)

// LLMFactory creates completion clients and embedding providers
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompletionClient creates a completion client based on llm.provider
func (f *LLMFactory) CreateCompletionClient() (core.CompletionClient, error) {
	llmCfg := f.cfg.GetLLM()

	switch llmCfg.Provider {
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		client := goopenai.NewClient(openaiCfg.APIKey)
		return openai.NewCompletionClient(
			client,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			llmCfg.Timeout,
			llmCfg.MaxRetries,
			f.logger,
		), nil
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiCfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return gemini.NewCompletionClient(
			client,
			geminiCfg.ModelName,
			geminiCfg.MaxTokens,
			geminiCfg.Temperature,
			geminiCfg.TopP,
			llmCfg.Timeout,
			llmCfg.MaxRetries,
			f.logger,
		), nil
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		client, err := f.bedrockClient(bedrockCfg.Region)
		if err != nil {
			return nil, err
		}
		return bedrock.NewCompletionClient(
			client,
			bedrockCfg.ModelID,
			bedrockCfg.MaxTokens,
			bedrockCfg.Temperature,
			bedrockCfg.TopP,
			llmCfg.Timeout,
			llmCfg.MaxRetries,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}
}

// CreateEmbeddingProvider creates an embedding provider based on
// embedding.provider
func (f *LLMFactory) CreateEmbeddingProvider() (core.EmbeddingProvider, error) {
	embCfg := f.cfg.GetEmbedding()

	switch embCfg.Provider {
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		client := goopenai.NewClient(openaiCfg.APIKey)
		return openai.NewEmbeddingProvider(
			client,
			openaiCfg.EmbeddingModelName,
			embCfg.Timeout,
			f.logger,
		), nil
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiCfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return gemini.NewEmbeddingProvider(
			client,
			geminiCfg.EmbeddingModelName,
			embCfg.Timeout,
			f.logger,
		), nil
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		client, err := f.bedrockClient(bedrockCfg.Region)
		if err != nil {
			return nil, err
		}
		return bedrock.NewEmbeddingProvider(
			client,
			bedrockCfg.EmbeddingModelID,
			embCfg.Timeout,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", embCfg.Provider)
	}
}

func (f *LLMFactory) bedrockClient(region string) (*bedrockruntime.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
