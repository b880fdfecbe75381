package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scam-guard-service/internal/models"
)

func TestTranscriber_SilenceBelowThreshold(t *testing.T) {
	tr := New()

	got, err := tr.Transcribe(context.Background(), make([]byte, DefaultSilenceBytes-1), "LINEAR16")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty transcript for silence, got %+v", got)
	}
}

func TestTranscriber_CyclesThroughScripts(t *testing.T) {
	a := models.Transcript{Utterances: []models.Utterance{{SpeakerID: "1", Text: "first"}}}
	b := models.Transcript{Utterances: []models.Utterance{{SpeakerID: "1", Text: "second"}}}
	tr := New(WithScripts(a, b), WithSilenceBytes(1))

	var texts []string
	for i := 0; i < 3; i++ {
		got, err := tr.Transcribe(context.Background(), []byte("audio"), "LINEAR16")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		texts = append(texts, got.Utterances[0].Text)
	}

	expected := []string{"first", "second", "first"}
	for i := range expected {
		if texts[i] != expected[i] {
			t.Errorf("call %d: expected %q, got %q", i, expected[i], texts[i])
		}
	}
}

func TestTranscriber_LatencyHonorsContext(t *testing.T) {
	tr := New(WithLatency(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Transcribe(ctx, make([]byte, DefaultSilenceBytes), "LINEAR16")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("expected transcribe to return promptly on deadline")
	}
}

func TestDefaultScripts(t *testing.T) {
	if len(DefaultScripts) == 0 {
		t.Fatal("expected default scripts")
	}
	for i, s := range DefaultScripts {
		if s.IsEmpty() {
			t.Errorf("script %d is empty", i)
		}
	}
}

func TestTranscriber_ThreadSafety(t *testing.T) {
	tr := New(WithSilenceBytes(1))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				tr.Transcribe(context.Background(), []byte("audio"), "LINEAR16")
			}
		}()
	}
	wg.Wait()

	if tr.next != 50 {
		t.Errorf("expected 50 transcriptions, got %d", tr.next)
	}
}
