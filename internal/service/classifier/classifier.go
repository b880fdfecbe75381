// Package classifier defines the risk-scoring port used by the pipeline.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"scam-guard-service/internal/models"
)

// Classifier scores normalized transcript text and returns the backend's raw field bag.
// Field names and value formats vary by backend; interpretation belongs to the verdict mapper.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.RawClassification, error)
}

// Failure reasons, used as metric labels.
const (
	ReasonTimeout       = "timeout"
	ReasonCanceled      = "canceled"
	ReasonBackend       = "backend"
	ReasonEmptyResponse = "empty_response"
)

// ClassificationError wraps any classification failure.
type ClassificationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classification %s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("classification %s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NewError builds a ClassificationError, deriving the reason from context errors.
func NewError(provider string, err error) *ClassificationError {
	reason := ReasonBackend
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled):
		reason = ReasonCanceled
	}
	return &ClassificationError{Provider: provider, Reason: reason, Err: err}
}

// Named is implemented by classifiers that report a provider name for metrics.
type Named interface {
	Name() string
}

// ProviderName returns the provider name of c, or "unknown".
func ProviderName(c Classifier) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
