package models

import "testing"

func TestTranscript_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   Transcript
		want bool
	}{
		{"no utterances", Transcript{}, true},
		{"whitespace only", Transcript{Utterances: []Utterance{{SpeakerID: "1", Text: "  \n\t"}}}, true},
		{"spoken words", Transcript{Utterances: []Utterance{{Text: ""}, {Text: "hello"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranscript_Normalized(t *testing.T) {
	tr := Transcript{Utterances: []Utterance{
		{SpeakerID: "2", Text: " This is the bank. "},
		{SpeakerID: "1", Text: "   "},
		{Text: "no speaker"},
		{SpeakerID: "1", Text: "Who is this?"},
	}}

	want := "2: This is the bank.\nno speaker\n1: Who is this?"
	if got := tr.Normalized(); got != want {
		t.Errorf("Normalized() = %q, want %q", got, want)
	}
}

func TestChunk_Size(t *testing.T) {
	if got := (Chunk{Kind: ChunkKindAudio, Audio: make([]byte, 7), Text: "ignored"}).Size(); got != 7 {
		t.Errorf("expected audio size 7, got %d", got)
	}
	if got := (Chunk{Kind: ChunkKindText, Text: "hello"}).Size(); got != 5 {
		t.Errorf("expected text size 5, got %d", got)
	}
}

func TestVerdictConstructors(t *testing.T) {
	l := ListeningVerdict()
	if l.Status != StatusSafe || l.Color != ColorGreen || l.HasConfidence() {
		t.Errorf("unexpected listening verdict %+v", l)
	}

	e := ErrorVerdict("Invalid message: bad")
	if e.Status != StatusError || e.Color != ColorGray || e.HasConfidence() {
		t.Errorf("unexpected error verdict %+v", e)
	}
}
