// Package gemini implements the completion and embedding ports on Google
// Gemini.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// CompletionClient is an implementation of the CompletionClient port using
// Google Gemini
type CompletionClient struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	modelName  string
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewCompletionClient creates a new Gemini completion client
func NewCompletionClient(
	client *genai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxRetries int,
	logger *zap.Logger,
) *CompletionClient {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &CompletionClient{
		client:     client,
		model:      model,
		modelName:  modelName,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Close closes the underlying Gemini client
func (c *CompletionClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete generates content for the prompt and returns the concatenated
// text parts of the first candidate.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	var text string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.model.GenerateContent(callCtx, genai.Text(prompt))
		if err != nil {
			return fmt.Errorf("failed to generate content with Gemini: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return backoff.Permanent(fmt.Errorf("empty response from Gemini"))
		}

		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		text = b.String()
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
	c.logger.Warn("Retrying Gemini call",
		zap.Duration("wait", wait),
		zap.Error(err))
}
