// Verdict Viewer - live verdict feed
// Consumes verdict and session events from Kafka and pushes them to browsers over WebSocket
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
)

// feedEvent is what browsers receive: the topic plus the raw event payload.
type feedEvent struct {
	Topic string          `json:"topic"`
	Event json.RawMessage `json:"event"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan feedEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan feedEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			log.Info().Int("clients", h.count()).Msg("Viewer connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			log.Info().Int("clients", h.count()).Msg("Viewer disconnected")

		case event := <-h.broadcast:
			payload, err := sonic.Marshal(event)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to encode feed event")
				continue
			}
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					log.Debug().Err(err).Msg("Viewer write failed")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		hub.register <- conn

		// Keep connection alive, handle disconnects
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string) {
	// Partition reader without a consumer group works better through port-forward
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from start")
	}

	log.Info().Str("topic", topic).Msg("Consuming from Kafka (last hour)")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", topic).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}

		if !gjson.ValidBytes(msg.Value) {
			log.Warn().Str("topic", topic).Msg("Skipping non-JSON message")
			continue
		}

		log.Debug().
			Str("topic", topic).
			Str("key", string(msg.Key)).
			Msg("Received event")

		select {
		case hub.broadcast <- feedEvent{Topic: topic, Event: json.RawMessage(msg.Value)}:
		case <-ctx.Done():
			return
		}
	}
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Scam Guard Verdicts</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.SAFE { color: green; } .SUSPICIOUS { color: orange; } .SCAM { color: red; } .ERROR { color: gray; }
li { margin: 0.3em 0; }
</style></head>
<body>
<h1>Scam Guard live verdicts</h1>
<ul id="feed"></ul>
<script>
const feed = document.getElementById("feed");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (m) => {
  const { topic, event } = JSON.parse(m.data);
  const li = document.createElement("li");
  if (event.status) {
    li.className = event.status;
    li.textContent = event.sessionId.slice(0, 8) + " " + event.chunkId + ": " + event.status + " - " + event.message;
  } else {
    li.textContent = event.sessionId.slice(0, 8) + " " + event.eventType + (event.reason ? " (" + event.reason + ")" : "");
  }
  feed.prepend(li);
};
</script>
</body>
</html>`

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicVerdict := flag.String("topic-verdict", "scamguard.verdict.emitted", "Verdict topic")
	topicSession := flag.String("topic-session", "scamguard.session.lifecycle", "Session lifecycle topic")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := newHub()
	go hub.run(ctx)

	go consumeKafka(ctx, hub, *brokers, *topicVerdict)
	go consumeKafka(ctx, hub, *brokers, *topicSession)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/ws", wsHandler(hub))

	server := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("url", "http://localhost:"+*port).
		Str("brokers", *brokers).
		Strs("topics", []string{*topicVerdict, *topicSession}).
		Msg("Verdict Viewer starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
