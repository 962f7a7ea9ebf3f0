package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// EmbeddingProvider produces dense vectors via the Gemini embedding models.
type EmbeddingProvider struct {
	model   *genai.EmbeddingModel
	timeout time.Duration
	logger  *zap.Logger
}

// NewEmbeddingProvider creates a new Gemini embedding provider
func NewEmbeddingProvider(
	client *genai.Client,
	modelName string,
	timeout time.Duration,
	logger *zap.Logger,
) *EmbeddingProvider {
	return &EmbeddingProvider{
		model:   client.EmbeddingModel(modelName),
		timeout: timeout,
		logger:  logger,
	}
}

// Embed returns the embedding vector for the given text.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.model.EmbedContent(callCtx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding response from Gemini")
	}
	return resp.Embedding.Values, nil
}
