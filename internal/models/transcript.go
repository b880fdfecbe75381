package models

import "strings"

// Utterance is a single speaker-tagged piece of a transcript.
type Utterance struct {
	SpeakerID string `json:"speakerId,omitempty"`
	Text      string `json:"text"`
}

// Transcript holds utterances in stream order.
type Transcript struct {
	Utterances []Utterance `json:"utterances"`
}

// IsEmpty returns true when the transcript carries no spoken words.
func (t Transcript) IsEmpty() bool {
	for _, u := range t.Utterances {
		if strings.TrimSpace(u.Text) != "" {
			return false
		}
	}
	return true
}

// Normalized renders the transcript as the text handed to a classifier:
// one "speaker: text" line per non-blank utterance.
func (t Transcript) Normalized() string {
	var b strings.Builder
	for _, u := range t.Utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if u.SpeakerID != "" {
			b.WriteString(u.SpeakerID)
			b.WriteString(": ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// RawClassification is the opaque field bag returned by a classifier backend.
// Field names are not stable across backends.
type RawClassification struct {
	Fields map[string]string `json:"fields"`
}
