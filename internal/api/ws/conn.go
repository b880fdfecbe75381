// Package ws serves scam-risk sessions over WebSocket.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/observability/logging"
)

var (
	// ErrQueueFull is returned by Emit when the client is not keeping up.
	ErrQueueFull = errors.New("write queue full")
	// ErrConnClosed is returned by Emit after the connection started closing.
	ErrConnClosed = errors.New("connection closed")
)

// Conn owns the write side of one WebSocket. All writes happen on the
// write pump goroutine; Emit only enqueues.
type Conn struct {
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       zerolog.Logger

	mu        sync.Mutex
	stopped   bool
	closeCode int
	closeText string

	closing chan struct{}
	done    chan struct{}
}

func newConn(ws *websocket.Conn, sessionID string, queue int, writeTimeout, pingInterval time.Duration) *Conn {
	if queue <= 0 {
		queue = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Conn{
		ws:           ws,
		send:         make(chan []byte, queue),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logging.WithSession(sessionID),
		closeCode:    websocket.CloseNormalClosure,
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Emit encodes v and queues it for the client without blocking.
func (c *Conn) Emit(v models.Verdict) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

func (c *Conn) enqueue(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrConnClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes queued messages, sends a close frame and closes the socket.
// Only the first call's code and text are used.
func (c *Conn) Close(code int, text string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.closeCode = code
	c.closeText = text
	c.mu.Unlock()

	close(c.closing)
}

// Done is closed once the socket has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Debug().Err(err).Msg("Write failed, stopping write pump")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("Ping failed, stopping write pump")
				return
			}
		case <-c.closing:
			c.drain()
			c.mu.Lock()
			code, text := c.closeCode, c.closeText
			c.mu.Unlock()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
			return
		}
	}
}

// drain writes whatever was queued before Close.
func (c *Conn) drain() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}
