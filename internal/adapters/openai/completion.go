// Package openai implements the completion and embedding ports on the
// OpenAI API.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CompletionClient is an implementation of the CompletionClient port using OpenAI
type CompletionClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	maxRetries  int
	logger      *zap.Logger
}

// NewCompletionClient creates a new OpenAI completion client
func NewCompletionClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxRetries int,
	logger *zap.Logger,
) *CompletionClient {
	return &CompletionClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		timeout:     timeout,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// Complete sends the prompt as a single-turn chat completion and returns the
// raw response text. Transient failures are retried with exponential backoff.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	var text string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("empty response from OpenAI"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx)
	if err := backoff.RetryNotify(operation, policy, c.notifyRetry); err != nil {
		return "", err
	}
	return text, nil
}

func (c *CompletionClient) notifyRetry(err error, wait time.Duration) {
	c.logger.Warn("Retrying OpenAI call",
		zap.Duration("wait", wait),
		zap.Error(err))
}
