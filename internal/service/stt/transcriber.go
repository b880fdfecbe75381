// Package stt defines the transcription port used by the pipeline.
package stt

import (
	"context"
	"errors"
	"fmt"

	"scam-guard-service/internal/models"
)

// Transcriber converts an audio buffer into ordered, speaker-tagged utterances.
// Implementations are stateless from the caller's perspective and must honor ctx.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, encoding string) (models.Transcript, error)
}

// Failure reasons, used as metric labels.
const (
	ReasonTimeout       = "timeout"
	ReasonCanceled      = "canceled"
	ReasonBackend       = "backend"
	ReasonEmptyResponse = "empty_response"
)

// TranscriptionError wraps any transcription failure.
type TranscriptionError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transcription %s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("transcription %s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// NewError builds a TranscriptionError, deriving the reason from context errors.
func NewError(provider string, err error) *TranscriptionError {
	reason := ReasonBackend
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled):
		reason = ReasonCanceled
	}
	return &TranscriptionError{Provider: provider, Reason: reason, Err: err}
}

// Named is implemented by transcribers that report a provider name for metrics.
type Named interface {
	Name() string
}

// ProviderName returns the provider name of t, or "unknown".
func ProviderName(t Transcriber) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
