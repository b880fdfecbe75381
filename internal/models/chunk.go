// Package models defines the data structures exchanged by the classification pipeline.
package models

import (
	"fmt"
	"time"
)

// ChunkKind identifies the modality of a decoded chunk.
type ChunkKind int

const (
	// ChunkKindNone means no chunk has been seen yet.
	ChunkKindNone ChunkKind = iota
	// ChunkKindAudio is an audio segment that needs transcription.
	ChunkKindAudio
	// ChunkKindText is a plain text message, classified directly.
	ChunkKindText
)

// String returns the string representation of the kind.
func (k ChunkKind) String() string {
	switch k {
	case ChunkKindNone:
		return "none"
	case ChunkKindAudio:
		return "audio"
	case ChunkKindText:
		return "text"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Chunk is one decoded unit of inbound session data.
// A Chunk is never modified after the decoder returns it.
type Chunk struct {
	Kind       ChunkKind
	Audio      []byte // set for ChunkKindAudio
	Encoding   string // encoding hint for Audio, e.g. LINEAR16
	Text       string // set for ChunkKindText
	ReceivedAt time.Time
}

// Size returns the payload size in bytes.
func (c Chunk) Size() int {
	if c.Kind == ChunkKindAudio {
		return len(c.Audio)
	}
	return len(c.Text)
}
