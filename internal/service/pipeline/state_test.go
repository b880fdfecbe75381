package pipeline

import (
	"errors"
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle()

	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
	if lc.IsClosed() {
		t.Error("expected IsClosed to be false")
	}
}

func TestLifecycle_AudioPath(t *testing.T) {
	lc := NewLifecycle()

	for _, next := range []State{StateDecoding, StateTranscribing, StateClassifying, StateEmitting, StateIdle} {
		if err := lc.Transition(next); err != nil {
			t.Fatalf("transition to %s: unexpected error: %v", next, err)
		}
	}
	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
}

func TestLifecycle_ShortCircuits(t *testing.T) {
	paths := map[string][]State{
		"text":         {StateDecoding, StateClassifying, StateEmitting, StateIdle},
		"decode error": {StateDecoding, StateEmitting, StateIdle},
		"silence":      {StateDecoding, StateTranscribing, StateEmitting, StateIdle},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			lc := NewLifecycle()
			for _, next := range path {
				if err := lc.Transition(next); err != nil {
					t.Fatalf("transition to %s: unexpected error: %v", next, err)
				}
			}
		})
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from []State
		to   State
	}{
		{"idle to classifying", nil, StateClassifying},
		{"idle to emitting", nil, StateEmitting},
		{"classifying to transcribing", []State{StateDecoding, StateClassifying}, StateTranscribing},
		{"emitting to decoding", []State{StateDecoding, StateEmitting}, StateDecoding},
		{"decoding to idle", []State{StateDecoding}, StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle()
			for _, s := range tt.from {
				if err := lc.Transition(s); err != nil {
					t.Fatalf("setup transition to %s: %v", s, err)
				}
			}
			before := lc.State()

			err := lc.Transition(tt.to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if lc.State() != before {
				t.Errorf("state changed on invalid transition: %v -> %v", before, lc.State())
			}
		})
	}
}

func TestLifecycle_Close(t *testing.T) {
	lc := NewLifecycle()
	lc.Transition(StateDecoding)
	lc.Transition(StateClassifying)

	if !lc.Close() {
		t.Error("expected first Close to return true")
	}
	if lc.Close() {
		t.Error("expected second Close to return false")
	}
	if !lc.IsClosed() {
		t.Error("expected IsClosed to be true")
	}
	if err := lc.Transition(StateEmitting); !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("expected ErrPipelineClosed, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "IDLE"},
		{StateDecoding, "DECODING"},
		{StateTranscribing, "TRANSCRIBING"},
		{StateClassifying, "CLASSIFYING"},
		{StateEmitting, "EMITTING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestLifecycle_ConcurrentClose(t *testing.T) {
	lc := NewLifecycle()

	var wg sync.WaitGroup
	closed := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closed <- lc.Close()
		}()
	}
	wg.Wait()
	close(closed)

	wins := 0
	for c := range closed {
		if c {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one Close to win, got %d", wins)
	}
}
