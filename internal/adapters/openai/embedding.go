package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EmbeddingProvider produces dense vectors via the OpenAI embeddings API.
type EmbeddingProvider struct {
	client    *openai.Client
	modelName string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEmbeddingProvider creates a new OpenAI embedding provider
func NewEmbeddingProvider(
	client *openai.Client,
	modelName string,
	timeout time.Duration,
	logger *zap.Logger,
) *EmbeddingProvider {
	return &EmbeddingProvider{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
		logger:    logger,
	}
}

// Embed returns the embedding vector for the given text.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.modelName),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding with OpenAI: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response from OpenAI")
	}
	return resp.Data[0].Embedding, nil
}
