package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/observability/logging"
	"scam-guard-service/internal/schema"
	"scam-guard-service/internal/service/chunk"
	"scam-guard-service/internal/service/classifier"
	"scam-guard-service/internal/service/pipeline"
	"scam-guard-service/internal/service/registry"
	"scam-guard-service/internal/service/stt"
	"scam-guard-service/internal/service/verdict"
)

// CapacityMessage is sent before closing a connection the registry refused.
const CapacityMessage = "Server at capacity, try again later"

// Config holds per-connection transport settings.
type Config struct {
	AllowedOrigins    []string
	DefaultEncoding   string
	MaxFrameBytes     int
	WriteQueue        int
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	STTTimeout        time.Duration
	ClassifierTimeout time.Duration
}

// Publisher records session lifecycle and verdict events.
type Publisher interface {
	pipeline.VerdictPublisher
	PublishSession(ctx context.Context, ev models.SessionEvent) error
}

// Deps are the shared collaborators every session uses.
// Publisher and Archiver are optional.
type Deps struct {
	Registry    *registry.Registry
	Transcriber stt.Transcriber
	Classifier  classifier.Classifier
	Mapper      *verdict.Mapper
	Validator   *schema.Validator
	Publisher   Publisher
	Archiver    pipeline.Archiver
}

// Handler upgrades requests and runs one pipeline per connection.
type Handler struct {
	cfg      Config
	deps     Deps
	decoder  *chunk.Decoder
	upgrader websocket.Upgrader
	baseCtx  context.Context
}

// NewHandler creates the WebSocket handler. Sessions are canceled when ctx is done.
func NewHandler(ctx context.Context, cfg Config, deps Deps) *Handler {
	if cfg.DefaultEncoding == "" {
		cfg.DefaultEncoding = "LINEAR16"
	}
	if deps.Mapper == nil {
		deps.Mapper = verdict.NewMapper(verdict.DefaultPolicy())
	}

	h := &Handler{
		cfg:     cfg,
		deps:    deps,
		decoder: chunk.NewDecoder(cfg.DefaultEncoding, cfg.MaxFrameBytes),
		baseCtx: ctx,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP handles one WebSocket session from upgrade to release.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	sess, err := h.deps.Registry.Create(r.Context(), r.RemoteAddr)
	if err != nil {
		h.reject(ws, err)
		return
	}
	logger := logging.WithSession(sess.ID)

	conn := newConn(ws, sess.ID, h.cfg.WriteQueue, h.cfg.WriteTimeout, h.cfg.PingInterval)
	go conn.writePump()

	p := pipeline.New(h.baseCtx, pipeline.Options{
		SessionID:         sess.ID,
		Decoder:           h.decoder,
		Transcriber:       h.deps.Transcriber,
		Classifier:        h.deps.Classifier,
		Mapper:            h.deps.Mapper,
		Emitter:           conn,
		Tracker:           sess,
		Publisher:         h.deps.Publisher,
		Archiver:          h.deps.Archiver,
		Validator:         h.deps.Validator,
		STTTimeout:        h.cfg.STTTimeout,
		ClassifierTimeout: h.cfg.ClassifierTimeout,
	})

	sess.OnRelease(func(reason string) {
		p.Close()
		conn.Close(closeCode(reason), reason)
		h.publishEnded(sess, p.Stats(), reason)
	})
	h.publishStarted(sess)
	logger.Info().Str("remoteAddr", r.RemoteAddr).Msg("Session connected")

	// A worker that stops on its own takes the session down with it.
	go func() {
		<-p.Done()
		h.deps.Registry.Remove(context.Background(), sess.ID, registry.ReasonInternal)
	}()

	reason := h.readLoop(ws, conn, p)
	h.deps.Registry.Remove(context.Background(), sess.ID, reason)

	select {
	case <-conn.Done():
	case <-time.After(h.writeTimeout()):
		ws.Close()
	}
	logger.Info().Str("reason", reason).Msg("Session disconnected")
}

// readLoop feeds inbound frames to the pipeline until the socket fails or the
// client breaks framing. It returns the release reason.
func (h *Handler) readLoop(ws *websocket.Conn, conn *Conn, p *pipeline.Pipeline) string {
	if h.cfg.MaxFrameBytes > 0 {
		// Slightly oversized frames still reach the decoder and get a protocol close.
		ws.SetReadLimit(int64(h.cfg.MaxFrameBytes) * 2)
	}
	deadline := 2 * conn.pingInterval
	_ = ws.SetReadDeadline(time.Now().Add(deadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Unexpected WebSocket close")
			}
			return registry.ReasonDisconnect
		}
		_ = ws.SetReadDeadline(time.Now().Add(deadline))

		err = p.Accept(frameType(messageType), data)
		if err == nil {
			continue
		}
		if errors.Is(err, pipeline.ErrPipelineClosed) {
			return registry.ReasonDisconnect
		}
		var derr *chunk.DecodeError
		if errors.As(err, &derr) && derr.Fatal() {
			return registry.ReasonProtocol
		}
		log.Warn().Err(err).Msg("Unexpected accept error")
		return registry.ReasonInternal
	}
}

// reject answers a refused connection with an ERROR verdict and a close frame.
func (h *Handler) reject(ws *websocket.Conn, err error) {
	defer ws.Close()

	log.Warn().Err(err).Msg("Session rejected")

	code := websocket.CloseInternalServerErr
	msg := "Session could not be created"
	if errors.Is(err, registry.ErrMaxSessions) {
		code = websocket.CloseTryAgainLater
		msg = CapacityMessage
	}

	deadline := time.Now().Add(h.writeTimeout())
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteJSON(models.ErrorVerdict(msg))
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()), deadline)
}

func (h *Handler) writeTimeout() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return 10 * time.Second
}

func (h *Handler) publishStarted(sess *registry.Session) {
	if h.deps.Publisher == nil {
		return
	}
	ev := models.SessionEvent{
		EventType:  models.EventSessionStarted,
		SessionID:  sess.ID,
		RemoteAddr: sess.RemoteAddr,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := h.deps.Publisher.PublishSession(context.Background(), ev); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to publish session start")
	}
}

func (h *Handler) publishEnded(sess *registry.Session, stats pipeline.Stats, reason string) {
	if h.deps.Publisher == nil {
		return
	}
	ev := models.SessionEvent{
		EventType:     models.EventSessionEnded,
		SessionID:     sess.ID,
		RemoteAddr:    sess.RemoteAddr,
		Reason:        reason,
		DurationMs:    time.Since(sess.CreatedAt).Milliseconds(),
		VerdictCount:  stats.Verdicts,
		DroppedChunks: stats.Dropped,
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := h.deps.Publisher.PublishSession(context.Background(), ev); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to publish session end")
	}
}

func frameType(messageType int) chunk.FrameType {
	switch messageType {
	case websocket.TextMessage:
		return chunk.FrameText
	case websocket.BinaryMessage:
		return chunk.FrameBinary
	default:
		return chunk.FrameUnknown
	}
}

func closeCode(reason string) int {
	switch reason {
	case registry.ReasonShutdown:
		return websocket.CloseGoingAway
	case registry.ReasonProtocol:
		return websocket.CloseProtocolError
	case registry.ReasonInternal:
		return websocket.CloseInternalServerErr
	default:
		return websocket.CloseNormalClosure
	}
}
