package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// TextModel generates a completion for a prompt. Implementations must be
// safe for concurrent use.
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicRequest represents the request structure for the Claude API
type AnthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

// Message represents a message in the Claude conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicResponse represents the response from the Claude API
type AnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicClient calls the Claude API behind a circuit breaker and a
// client-side rate limit
type AnthropicClient struct {
	apiKey    string
	model     string
	apiClient *http.Client
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
	logger    *logrus.Entry
}

// NewAnthropicClient creates a Claude API client from service configuration
func NewAnthropicClient(cfg *config.Config, logger *logrus.Entry) *AnthropicClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "anthropic-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.CircuitBreakerThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &AnthropicClient{
		apiKey: cfg.AnthropicAPIKey,
		model:  cfg.AIModel,
		apiClient: &http.Client{
			Timeout: cfg.AITimeout,
		},
		breaker: cb,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.AIRateLimit)/60.0), cfg.AIRateLimit),
		logger:  logger,
	}
}

// Complete sends the prompt to the Claude API and returns the text of the
// first content block
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("Anthropic API key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrExternalService, err)
	}
	return result.(string), nil
}

func (c *AnthropicClient) doRequest(ctx context.Context, prompt string) (string, error) {
	reqBody := AnthropicRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicMessagesURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", err
	}

	if len(anthropicResp.Content) == 0 {
		return "", errors.New("no content in API response")
	}

	c.logger.WithFields(logrus.Fields{
		"input_tokens":  anthropicResp.Usage.InputTokens,
		"output_tokens": anthropicResp.Usage.OutputTokens,
	}).Debug("Claude API call completed")

	return anthropicResp.Content[0].Text, nil
}
