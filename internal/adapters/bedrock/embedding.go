package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

// EmbeddingProvider produces dense vectors via the Titan embedding models.
type EmbeddingProvider struct {
	client  *bedrockruntime.Client
	modelID string
	timeout time.Duration
	logger  *zap.Logger
}

// NewEmbeddingProvider creates a new Bedrock embedding provider
func NewEmbeddingProvider(
	client *bedrockruntime.Client,
	modelID string,
	timeout time.Duration,
	logger *zap.Logger,
) *EmbeddingProvider {
	return &EmbeddingProvider{
		client:  client,
		modelID: modelID,
		timeout: timeout,
		logger:  logger,
	}
}

// Embed returns the embedding vector for the given text.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"inputText": text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     &p.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock embedding model: %w", err)
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Titan embedding response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response from Bedrock")
	}
	return out.Embedding, nil
}
