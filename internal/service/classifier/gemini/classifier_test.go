package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scam-guard-service/internal/service/classifier"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *Classifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClassify_ParsesReply(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"risk_level\":\"high\",\"spam_score\":\"91%\"}"}]}}]}`))
	})

	got, err := c.Classify(context.Background(), "1: pay the IRS in bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fields["spam_score"] != "91%" {
		t.Errorf("expected spam_score 91%%, got %q", got.Fields["spam_score"])
	}
	if got.Fields["risk_level"] != "high" {
		t.Errorf("expected risk_level high, got %q", got.Fields["risk_level"])
	}
}

func TestClassify_EmptyReply(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Classify(context.Background(), "hello")

	var cerr *classifier.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if cerr.Reason != classifier.ReasonEmptyResponse {
		t.Errorf("expected empty_response reason, got %q", cerr.Reason)
	}
}

func TestClassify_BackendError(t *testing.T) {
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Classify(context.Background(), "hello")

	var cerr *classifier.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if cerr.Provider != "gemini" {
		t.Errorf("expected provider gemini, got %q", cerr.Provider)
	}
}

func TestRetryableCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		if !retryableCode(code) {
			t.Errorf("expected %d to be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 404} {
		if retryableCode(code) {
			t.Errorf("expected %d not to be retryable", code)
		}
	}
}
