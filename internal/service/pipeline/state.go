// Package pipeline runs the per-session decode, transcribe, classify and emit loop.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a session pipeline.
type State int

const (
	// StateIdle - Waiting for the next pending chunk.
	StateIdle State = iota
	// StateDecoding - A pending chunk has been taken for processing.
	StateDecoding
	// StateTranscribing - Audio is with the transcription backend.
	StateTranscribing
	// StateClassifying - Text is with the classifier backend.
	StateClassifying
	// StateEmitting - A verdict is being delivered.
	StateEmitting
	// StateClosed - Session disconnected. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDecoding:
		return "DECODING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateClassifying:
		return "CLASSIFYING"
	case StateEmitting:
		return "EMITTING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is CLOSED.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// Errors for invalid state transitions.
var (
	ErrPipelineClosed    = errors.New("pipeline is closed")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// transitions lists the allowed non-terminal moves.
var transitions = map[State][]State{
	StateIdle:         {StateDecoding},
	StateDecoding:     {StateTranscribing, StateClassifying, StateEmitting},
	StateTranscribing: {StateClassifying, StateEmitting},
	StateClassifying:  {StateEmitting},
	StateEmitting:     {StateIdle},
}

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → DECODING → TRANSCRIBING → CLASSIFYING → EMITTING → IDLE
//	          │             │                          ▲
//	          │             └── failure / silence ─────┤
//	          └── text ──→ CLASSIFYING                 │
//	          └── decode error / blank text ───────────┘
//
// Close moves any state to CLOSED; every later transition fails.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a new lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true if the lifecycle is in the terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Transition moves to the next state if the move is allowed.
func (l *Lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrPipelineClosed
	}
	for _, allowed := range transitions[l.state] {
		if allowed == to {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
}

// Close transitions to CLOSED from any state.
// Returns true if this call closed the lifecycle, false if it was already closed.
func (l *Lifecycle) Close() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateClosed
	return true
}
