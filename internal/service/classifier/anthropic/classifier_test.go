package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"scam-guard-service/internal/service/classifier"
)

const messageReply = `{
	"id": "msg_test",
	"type": "message",
	"role": "assistant",
	"model": "claude-test",
	"content": [{"type": "text", "text": "{\"spam_score\": \"88%\", \"analysis\": \"asks for gift cards\"}"}],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 10, "output_tokens": 12}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify_ParsesReply(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-test" {
			t.Errorf("expected api key header, got %q", r.Header.Get("X-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(messageReply))
	})

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL})

	got, err := c.Classify(context.Background(), "1: buy gift cards now")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fields["spam_score"] != "88%" {
		t.Errorf("expected spam_score 88%%, got %q", got.Fields["spam_score"])
	}
	if got.Fields["analysis"] != "asks for gift cards" {
		t.Errorf("unexpected analysis %q", got.Fields["analysis"])
	}
}

func TestClassify_RetriesOverloaded(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(529)
			w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		w.Write([]byte(messageReply))
	})

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 2, BaseDelay: time.Millisecond})

	if _, err := c.Classify(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClassify_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	})

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 3, BaseDelay: time.Millisecond})

	_, err := c.Classify(context.Background(), "hello")

	var cerr *classifier.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if cerr.Reason != classifier.ReasonBackend {
		t.Errorf("expected backend reason, got %q", cerr.Reason)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Classify(ctx, "hello")

	var cerr *classifier.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if cerr.Reason != classifier.ReasonTimeout {
		t.Errorf("expected timeout reason, got %q", cerr.Reason)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	c := New(Config{APIKey: "sk-test"})
	if c.model != defaultModel {
		t.Errorf("expected default model %q, got %q", defaultModel, c.model)
	}
	if c.Name() != "anthropic" {
		t.Errorf("expected name 'anthropic', got %q", c.Name())
	}
}
