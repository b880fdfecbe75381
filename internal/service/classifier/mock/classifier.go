// Package mock provides a keyword-scoring classifier for running without an LLM.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"scam-guard-service/internal/models"
)

// DefaultWeights maps scam indicators to their contribution to the score.
var DefaultWeights = map[string]int{
	"gift card":              45,
	"wire transfer":          35,
	"social security number": 35,
	"arrested":               30,
	"suspended":              25,
	"verify your account":    30,
	"account number":         20,
	"bitcoin":                30,
	"urgent":                 15,
	"fraud department":       20,
	"pay":                    10,
	"internal revenue":       25,
}

// Classifier implements classifier.Classifier by summing keyword weights.
// It replies in the same loose shape an LLM would.
type Classifier struct {
	weights map[string]int
	latency time.Duration
}

// Option configures a mock Classifier.
type Option func(*Classifier)

// WithWeights replaces the keyword weights.
func WithWeights(w map[string]int) Option {
	return func(c *Classifier) { c.weights = w }
}

// WithLatency simulates backend processing time.
func WithLatency(d time.Duration) Option {
	return func(c *Classifier) { c.latency = d }
}

// New creates a new mock classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{weights: DefaultWeights}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name.
func (c *Classifier) Name() string {
	return "mock"
}

// Classify scores text and returns {"spam_score": "NN%", "analysis": ...}.
func (c *Classifier) Classify(ctx context.Context, text string) (models.RawClassification, error) {
	if c.latency > 0 {
		timer := time.NewTimer(c.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.RawClassification{}, ctx.Err()
		case <-timer.C:
		}
	}

	lower := strings.ToLower(text)
	score := 0
	var hits []string
	for kw, w := range c.weights {
		if strings.Contains(lower, kw) {
			score += w
			hits = append(hits, kw)
		}
	}
	if score > 100 {
		score = 100
	}
	sort.Strings(hits)

	analysis := "no scam indicators found"
	if len(hits) > 0 {
		analysis = "indicators: " + strings.Join(hits, ", ")
	}

	return models.RawClassification{Fields: map[string]string{
		"spam_score": fmt.Sprintf("%d%%", score),
		"analysis":   analysis,
	}}, nil
}
