package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"scam-guard-service/internal/models"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// At 8kHz 16-bit mono = 16000 bytes/second
const bytesPerSecond = 16000

func main() {
	audioFile := flag.String("audio", "../../testdata/sample-8khz.wav", "Path to WAV file (8kHz 16-bit mono)")
	serverURL := flag.String("server", "ws://localhost:8000/ws/audio", "WebSocket endpoint")
	chunkMs := flag.Int("chunk-ms", 2000, "Audio per binary frame in milliseconds")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// Open audio file
	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV header")
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal().Msg("Not a valid WAV file")
	}

	// Extract audio format info
	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Info().
		Uint16("format", audioFormat).
		Uint16("channels", numChannels).
		Uint32("sampleRate", sampleRate).
		Uint16("bitsPerSample", bitsPerSample).
		Msg("WAV file")

	if audioFormat != 1 { // PCM
		log.Fatal().Msg("Only PCM format supported")
	}
	if sampleRate != 8000 {
		log.Warn().Uint32("sampleRate", sampleRate).Msg("Expected 8000 Hz audio")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverURL).Msg("Failed to connect")
	}
	defer conn.Close()

	log.Info().Str("server", *serverURL).Msg("Connected")

	// Verdicts arrive asynchronously; a newer chunk may supersede a pending one.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var v models.Verdict
			if err := conn.ReadJSON(&v); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					log.Info().Int("code", ce.Code).Str("text", ce.Text).Msg("Server closed connection")
				}
				return
			}
			ev := log.Info().Str("status", string(v.Status))
			if v.Confidence != nil {
				ev = ev.Float64("confidence", *v.Confidence)
			}
			ev.Msg(v.Message)
		}
	}()

	chunkSize := bytesPerSecond * *chunkMs / 1000
	interval := time.Duration(*chunkMs) * time.Millisecond
	buf := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			chunkNum++
			totalBytes += int64(n)
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				log.Fatal().Err(werr).Msg("Failed to send frame")
			}
			log.Debug().Int("chunk", chunkNum).Int64("totalBytes", totalBytes).Msg("Sent chunk")

			// Simulate real-time streaming
			time.Sleep(interval)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read audio")
		}
	}

	log.Info().
		Int("chunks", chunkNum).
		Int64("bytes", totalBytes).
		Dur("elapsed", time.Since(startTime)).
		Msg("Finished streaming, waiting for last verdict")

	time.Sleep(3 * time.Second)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
