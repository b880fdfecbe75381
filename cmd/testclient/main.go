package main

import (
	"encoding/base64"
	"flag"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"scam-guard-service/internal/models"
)

type envelope struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	Encoding string `json:"encoding,omitempty"`
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8000/ws/audio", "WebSocket endpoint")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverURL).Msg("Failed to connect")
	}
	defer conn.Close()

	log.Info().Str("server", *serverURL).Msg("Connected to server")

	frames := [][]byte{
		mustEnvelope(envelope{Type: "text_message", Data: "Hi, this is Sam from the dentist confirming your appointment."}),
		mustEnvelope(envelope{Type: "text_message", Data: "Your account has been suspended, please verify your account today."}),
		mustEnvelope(envelope{Type: "text_message", Data: "This is the fraud department. Urgent: pay with a gift card or you will be arrested."}),
		mustEnvelope(envelope{Type: "audio_chunk", Data: base64.StdEncoding.EncodeToString(make([]byte, 3200)), Encoding: "LINEAR16"}),
		[]byte(`{"type":"video_frame","data":""}`),
		[]byte("not json"),
	}

	for i, frame := range frames {
		log.Info().Int("frame", i+1).Str("payload", truncate(string(frame), 60)).Msg("Sending frame")
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Fatal().Err(err).Msg("Failed to send frame")
		}

		// Wait for each verdict so none are superseded.
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var v models.Verdict
		if err := conn.ReadJSON(&v); err != nil {
			log.Fatal().Err(err).Msg("Failed to read verdict")
		}
		logVerdict(v)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Info().Msg("Done")
}

func mustEnvelope(env envelope) []byte {
	b, err := sonic.Marshal(env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode envelope")
	}
	return b
}

func logVerdict(v models.Verdict) {
	ev := log.Info().
		Str("status", string(v.Status)).
		Str("color", v.Color)
	if v.Confidence != nil {
		ev = ev.Float64("confidence", *v.Confidence)
	}
	ev.Msg(v.Message)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
