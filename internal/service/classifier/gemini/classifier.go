// Package gemini provides a Gemini-backed classifier.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/service/classifier"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// Config holds Gemini classifier configuration.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	BaseDelay  time.Duration
	BaseURL    string
}

// Classifier implements classifier.Classifier using GenerateContent.
type Classifier struct {
	client     *genai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// New creates a new Gemini classifier.
func New(ctx context.Context, cfg Config) (*Classifier, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Classifier{
		client:     client,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}, nil
}

// Name returns the provider name.
func (c *Classifier) Name() string {
	return providerName
}

// Classify asks Gemini to score text and flattens the reply into a field bag.
func (c *Classifier) Classify(ctx context.Context, text string) (models.RawClassification, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: classifier.Prompt}},
		},
		ResponseMIMEType: "application/json",
	}

	var resp *genai.GenerateContentResponse
	err := classifier.Retry(ctx, providerName, c.maxRetries, c.baseDelay, isRetryable, func() error {
		var err error
		resp, err = c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
		return err
	})
	if err != nil {
		return models.RawClassification{}, classifier.NewError(providerName, err)
	}

	reply := ""
	if resp != nil {
		reply = strings.TrimSpace(resp.Text())
	}
	if reply == "" {
		return models.RawClassification{}, &classifier.ClassificationError{
			Provider: providerName,
			Reason:   classifier.ReasonEmptyResponse,
			Err:      errors.New("no text in response"),
		}
	}
	return classifier.ParseFields(reply), nil
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableCode(apiErrPtr.Code)
	}
	return false
}

func retryableCode(code int) bool {
	switch code {
	case 429, 500, 502, 503:
		return true
	}
	return false
}
