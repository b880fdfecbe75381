// Package google provides a Google Cloud Speech-to-Text transcriber.
package google

import (
	"context"
	"errors"
	"strconv"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/service/stt"
)

const providerName = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string
	SampleRateHz    int
	AudioEncoding   string
	Diarization     bool
	MinSpeakerCount int
	MaxSpeakerCount int
}

// DefaultConfig returns default Google STT configuration for 8kHz telephony audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "en-US",
		SampleRateHz:    8000,
		AudioEncoding:   "LINEAR16",
		Diarization:     true,
		MinSpeakerCount: 1,
		MaxSpeakerCount: 2,
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Transcriber implements stt.Transcriber using synchronous Recognize calls.
type Transcriber struct {
	client    *speech.Client
	recognize recognizeFunc
	cfg       Config
}

// New creates a new Google transcriber.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Transcriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Transcriber{
		client: c,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return c.Recognize(ctx, req)
		},
		cfg: cfg,
	}, nil
}

// Name returns the provider name.
func (t *Transcriber) Name() string {
	return providerName
}

// Close releases the underlying client.
func (t *Transcriber) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

// Transcribe sends one audio buffer to Google and returns speaker-tagged utterances.
// An empty encoding falls back to the configured default.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, encoding string) (models.Transcript, error) {
	if encoding == "" {
		encoding = t.cfg.AudioEncoding
	}

	resp, err := t.recognize(ctx, t.buildRequest(audio, encoding))
	if err != nil {
		return models.Transcript{}, stt.NewError(providerName, err)
	}
	if resp == nil {
		return models.Transcript{}, &stt.TranscriptionError{
			Provider: providerName,
			Reason:   stt.ReasonEmptyResponse,
			Err:      errors.New("nil recognize response"),
		}
	}

	return toTranscript(resp), nil
}

func (t *Transcriber) buildRequest(audio []byte, encoding string) *speechpb.RecognizeRequest {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(encoding),
		SampleRateHertz:            int32(t.cfg.SampleRateHz),
		LanguageCode:               t.cfg.LanguageCode,
		EnableAutomaticPunctuation: true,
	}
	if t.cfg.Diarization {
		rc.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          int32(t.cfg.MinSpeakerCount),
			MaxSpeakerCount:          int32(t.cfg.MaxSpeakerCount),
		}
	}
	return &speechpb.RecognizeRequest{
		Config: rc,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// toTranscript converts a Recognize response into utterances.
// With diarization, Google repeats every word with its speaker tag in the
// last result; consecutive words from the same speaker form one utterance.
func toTranscript(resp *speechpb.RecognizeResponse) models.Transcript {
	if n := len(resp.Results); n > 0 {
		last := resp.Results[n-1]
		if len(last.Alternatives) > 0 && hasSpeakerTags(last.Alternatives[0].Words) {
			return models.Transcript{Utterances: groupBySpeaker(last.Alternatives[0].Words)}
		}
	}

	var out models.Transcript
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		text := strings.TrimSpace(r.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		out.Utterances = append(out.Utterances, models.Utterance{Text: text})
	}
	return out
}

func hasSpeakerTags(words []*speechpb.WordInfo) bool {
	for _, w := range words {
		if w.GetSpeakerTag() > 0 {
			return true
		}
	}
	return false
}

func groupBySpeaker(words []*speechpb.WordInfo) []models.Utterance {
	var (
		out     []models.Utterance
		current []string
		tag     int32 = -1
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, models.Utterance{
			SpeakerID: strconv.Itoa(int(tag)),
			Text:      strings.Join(current, " "),
		})
		current = nil
	}

	for _, w := range words {
		if w.GetSpeakerTag() != tag {
			flush()
			tag = w.GetSpeakerTag()
		}
		current = append(current, w.GetWord())
	}
	flush()
	return out
}

// parseAudioEncoding converts an encoding name to the Google enum.
// Unknown names fall back to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
