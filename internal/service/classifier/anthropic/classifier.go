// Package anthropic provides a Claude-backed classifier.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/service/classifier"
)

const (
	providerName = "anthropic"
	defaultModel = "claude-sonnet-4-20250514"
	maxTokens    = 256
)

// Config holds Claude classifier configuration.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	BaseDelay  time.Duration
	BaseURL    string
}

// Classifier implements classifier.Classifier using the Messages API.
type Classifier struct {
	client     anthropic.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// New creates a new Claude classifier.
func New(cfg Config) *Classifier {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}

	// Retries are handled here so they stay inside the caller's deadline.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Classifier{
		client:     anthropic.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}
}

// Name returns the provider name.
func (c *Classifier) Name() string {
	return providerName
}

// Classify asks Claude to score text and flattens the reply into a field bag.
func (c *Classifier) Classify(ctx context.Context, text string) (models.RawClassification, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: classifier.Prompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}

	var resp *anthropic.Message
	err := classifier.Retry(ctx, providerName, c.maxRetries, c.baseDelay, isRetryable, func() error {
		var err error
		resp, err = c.client.Messages.New(ctx, params)
		return err
	})
	if err != nil {
		return models.RawClassification{}, classifier.NewError(providerName, err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return classifier.ParseFields(block.Text), nil
		}
	}
	return models.RawClassification{}, &classifier.ClassificationError{
		Provider: providerName,
		Reason:   classifier.ReasonEmptyResponse,
		Err:      fmt.Errorf("no text content in response %s", resp.ID),
	}
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 429, 500, 502, 503, 529:
		return true
	}
	return false
}
