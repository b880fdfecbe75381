// Package chunk turns inbound wire frames into typed pipeline chunks.
package chunk

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"scam-guard-service/internal/models"
)

// FrameType is the transport-level frame kind.
type FrameType int

const (
	FrameUnknown FrameType = iota
	FrameText
	FrameBinary
)

// Envelope message types.
const (
	TypeAudioChunk  = "audio_chunk"
	TypeTextMessage = "text_message"
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// ErrMalformed - the envelope is not a JSON object.
	ErrMalformed ErrorKind = iota
	// ErrUnknownType - the envelope type field is missing or unsupported.
	ErrUnknownType
	// ErrInvalidPayload - the payload is not valid for the declared kind.
	ErrInvalidPayload
	// ErrFraming - the frame itself violates the transport contract.
	// This is the only non-recoverable kind.
	ErrFraming
)

// String returns the metric label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrMalformed:
		return "malformed"
	case ErrUnknownType:
		return "unknown_type"
	case ErrInvalidPayload:
		return "invalid_payload"
	case ErrFraming:
		return "framing"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// DecodeError describes why a frame could not become a chunk.
type DecodeError struct {
	Kind   ErrorKind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
}

// Fatal reports whether the session must be closed.
func (e *DecodeError) Fatal() bool {
	return e.Kind == ErrFraming
}

// envelope is the JSON wrapper used by text frames.
type envelope struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	Encoding string `json:"encoding,omitempty"`
}

// Decoder converts frames to chunks. It holds no mutable state.
type Decoder struct {
	defaultEncoding string
	maxFrameBytes   int
}

// NewDecoder creates a decoder. Binary frames are tagged with defaultEncoding;
// frames over maxFrameBytes are rejected as framing violations (0 disables the check).
func NewDecoder(defaultEncoding string, maxFrameBytes int) *Decoder {
	return &Decoder{
		defaultEncoding: defaultEncoding,
		maxFrameBytes:   maxFrameBytes,
	}
}

// Decode converts one frame into a Chunk or returns a *DecodeError.
func (d *Decoder) Decode(frameType FrameType, data []byte, receivedAt time.Time) (models.Chunk, error) {
	if d.maxFrameBytes > 0 && len(data) > d.maxFrameBytes {
		return models.Chunk{}, &DecodeError{
			Kind:   ErrFraming,
			Reason: fmt.Sprintf("frame of %d bytes exceeds limit of %d", len(data), d.maxFrameBytes),
		}
	}

	switch frameType {
	case FrameBinary:
		if len(data) == 0 {
			return models.Chunk{}, &DecodeError{Kind: ErrInvalidPayload, Reason: "empty audio frame"}
		}
		audio := make([]byte, len(data))
		copy(audio, data)
		return models.Chunk{
			Kind:       models.ChunkKindAudio,
			Audio:      audio,
			Encoding:   d.defaultEncoding,
			ReceivedAt: receivedAt,
		}, nil
	case FrameText:
		return d.decodeEnvelope(data, receivedAt)
	default:
		return models.Chunk{}, &DecodeError{
			Kind:   ErrFraming,
			Reason: fmt.Sprintf("unsupported frame type %d", frameType),
		}
	}
}

func (d *Decoder) decodeEnvelope(data []byte, receivedAt time.Time) (models.Chunk, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return models.Chunk{}, &DecodeError{Kind: ErrMalformed, Reason: "envelope is not a JSON object"}
	}

	switch env.Type {
	case TypeAudioChunk:
		audio, err := base64.StdEncoding.DecodeString(strings.TrimSpace(env.Data))
		if err != nil {
			return models.Chunk{}, &DecodeError{Kind: ErrInvalidPayload, Reason: "audio data is not valid base64"}
		}
		if len(audio) == 0 {
			return models.Chunk{}, &DecodeError{Kind: ErrInvalidPayload, Reason: "empty audio data"}
		}
		encoding := env.Encoding
		if encoding == "" {
			encoding = d.defaultEncoding
		}
		return models.Chunk{
			Kind:       models.ChunkKindAudio,
			Audio:      audio,
			Encoding:   encoding,
			ReceivedAt: receivedAt,
		}, nil
	case TypeTextMessage:
		return models.Chunk{
			Kind:       models.ChunkKindText,
			Text:       env.Data,
			ReceivedAt: receivedAt,
		}, nil
	case "":
		return models.Chunk{}, &DecodeError{Kind: ErrUnknownType, Reason: "missing type field"}
	default:
		return models.Chunk{}, &DecodeError{Kind: ErrUnknownType, Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}
