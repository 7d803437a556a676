// Package eventbus implements a loopback-only event bridge: the agent
// broadcasts JSON progress/status envelopes over a WebSocket so a local UI
// (desktop tray app, browser tab) can subscribe without the agent needing to
// know anything about its presentation layer.
//
// Grounded on the teacher's serveWS handler (upgrade, per-client send
// channel, ping/pong keepalive, reader/writer goroutines) in
// _examples/abrahamVado-DriftPursuit/go-broker/main.go, and on
// websocket_auth.go for the loopback-token authentication gate (here backed
// by internal/auth.LoopbackTokenAuthenticator instead of a remote HMAC
// broker secret).
package eventbus

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ladderlegends/sc2-uploader-agent/internal/auth"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongMultiplier = 3
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // loopback-only; gated by token instead
}

// Event is a single envelope broadcast to subscribers, matching the shape
// the scanner/executor/manager services emit for C7/C8/C9 progress.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// Bus is a loopback WebSocket broadcaster. It has exactly one purpose: fan
// out Publish calls to every connected client.
type Bus struct {
	addr          string
	authenticator *auth.LoopbackTokenAuthenticator
	logger        *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	server     *http.Server
	listenAddr string
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New constructs a Bus listening on addr (typically 127.0.0.1:<port>),
// requiring authenticator to approve every connection.
func New(addr string, authenticator *auth.LoopbackTokenAuthenticator, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.L()
	}
	return &Bus{
		addr:          addr,
		authenticator: authenticator,
		logger:        logger,
		clients:       make(map[*client]struct{}),
	}
}

// Start begins serving WebSocket upgrades on b.addr. It returns once the
// listener is bound; cancelling ctx shuts the server down.
func (b *Bus) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", b.serveWS)

	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return err
	}
	b.server = &http.Server{Handler: mux}
	b.listenAddr = listener.Addr().String()
	b.logger.Info("event bridge listening", logging.String("addr", b.listenAddr))

	go func() {
		if err := b.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			b.logger.Error("event bridge stopped unexpectedly", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.server.Shutdown(shutdownCtx)
	}()
	return nil
}

// Publish fans a typed event out to every connected client. Non-blocking: a
// client whose send buffer is full is disconnected rather than stalling the
// publisher (the teacher's broker applies the same backpressure policy).
func (b *Bus) Publish(eventType string, payload any) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("failed to marshal event", logging.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.logger.Warn("dropping slow event-bridge client")
			close(c.send)
			delete(b.clients, c)
		}
	}
}

func (b *Bus) serveWS(w http.ResponseWriter, r *http.Request) {
	if b.authenticator != nil {
		token := strings.TrimSpace(r.URL.Query().Get("auth_token"))
		if _, err := b.authenticator.Verify(token); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("event bridge upgrade failed", logging.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(c)
	go b.readLoop(c)
}

// readLoop exists only to detect client disconnects (the bus never expects
// inbound messages) and drive the pong-driven read deadline.
func (b *Bus) readLoop(c *client) {
	defer b.disconnect(c)
	waitDuration := pongMultiplier * pingInterval
	c.conn.SetReadDeadline(time.Now().Add(waitDuration))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(waitDuration))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Bus) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (b *Bus) disconnect(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

// ClientCount reports how many subscribers are currently connected.
func (b *Bus) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
