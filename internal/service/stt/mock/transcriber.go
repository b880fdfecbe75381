// Package mock provides a scripted transcriber for running without cloud credentials.
// It cycles through sample call excerpts, treats short buffers as silence,
// and can simulate backend latency.
package mock

import (
	"context"
	"sync"
	"time"

	"scam-guard-service/internal/models"
)

// DefaultSilenceBytes is the buffer size below which audio is treated as silence.
// Roughly 100ms of 8kHz 16-bit mono.
const DefaultSilenceBytes = 1600

// DefaultScripts provides sample call excerpts, from benign to fraudulent.
var DefaultScripts = []models.Transcript{
	{Utterances: []models.Utterance{
		{SpeakerID: "1", Text: "Hi, this is Dr. Patel's office confirming your appointment on Tuesday"},
		{SpeakerID: "2", Text: "Yes, that works for me, thank you"},
	}},
	{Utterances: []models.Utterance{
		{SpeakerID: "1", Text: "This is your bank's fraud department, we noticed unusual activity"},
		{SpeakerID: "1", Text: "Can you verify your account number for me"},
	}},
	{Utterances: []models.Utterance{
		{SpeakerID: "1", Text: "Your social security number has been suspended"},
		{SpeakerID: "1", Text: "You must pay with gift cards today or you will be arrested"},
		{SpeakerID: "2", Text: "What? Who is this?"},
	}},
	{Utterances: []models.Utterance{
		{SpeakerID: "2", Text: "Hey mom, I'll be home for dinner around seven"},
	}},
}

// Transcriber implements stt.Transcriber with scripted results.
type Transcriber struct {
	mu           sync.Mutex
	scripts      []models.Transcript
	next         int
	silenceBytes int
	latency      time.Duration
}

// Option configures a mock Transcriber.
type Option func(*Transcriber)

// WithScripts replaces the scripted transcripts.
func WithScripts(scripts ...models.Transcript) Option {
	return func(t *Transcriber) { t.scripts = scripts }
}

// WithSilenceBytes sets the silence threshold.
func WithSilenceBytes(n int) Option {
	return func(t *Transcriber) { t.silenceBytes = n }
}

// WithLatency simulates backend processing time.
func WithLatency(d time.Duration) Option {
	return func(t *Transcriber) { t.latency = d }
}

// New creates a new mock transcriber.
func New(opts ...Option) *Transcriber {
	t := &Transcriber{
		scripts:      DefaultScripts,
		silenceBytes: DefaultSilenceBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the provider name.
func (t *Transcriber) Name() string {
	return "mock"
}

// Transcribe returns the next scripted transcript, or an empty one for silence.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, encoding string) (models.Transcript, error) {
	if t.latency > 0 {
		timer := time.NewTimer(t.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.Transcript{}, ctx.Err()
		case <-timer.C:
		}
	}

	if len(audio) < t.silenceBytes || len(t.scripts) == 0 {
		return models.Transcript{}, nil
	}

	t.mu.Lock()
	script := t.scripts[t.next%len(t.scripts)]
	t.next++
	t.mu.Unlock()

	return script, nil
}
