// Package bedrock implements the completion and embedding ports on Amazon
// Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// CompletionClient is an implementation of the CompletionClient port using
// Amazon Bedrock
type CompletionClient struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	maxRetries  int
	logger      *zap.Logger
}

// NewCompletionClient creates a new Bedrock completion client
func NewCompletionClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	maxRetries int,
	logger *zap.Logger,
) *CompletionClient {
	return &CompletionClient{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		timeout:     timeout,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

func (c *CompletionClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

func (c *CompletionClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// Complete invokes the configured model with a provider-specific payload and
// returns the raw response text.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := c.requestPayload(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var text string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
			ModelId:     &c.modelID,
			Body:        payload,
			Accept:      aws.String("application/json"),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to invoke Bedrock model: %w", err)
		}

		text, err = c.responseText(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
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

// requestPayload builds the model-family specific invocation body.
func (c *CompletionClient) requestPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
}

// responseText extracts the generated text from the model-family specific
// response body.
func (c *CompletionClient) responseText(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var resp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return resp.Completion, nil
	case c.isAmazonTitanModel():
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return resp.Results[0].OutputText, nil
	default:
		var resp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, candidate := range []string{resp.Output, resp.Text, resp.Response} {
			if candidate != "" {
				return candidate, nil
			}
		}
		return string(body), nil
	}
}

func (c *CompletionClient) notifyRetry(err error, wait time.Duration) {
	c.logger.Warn("Retrying Bedrock call",
		zap.Duration("wait", wait),
		zap.Error(err))
}
