// Package eventhub streams engine status to local WebSocket clients.
//
// Every client receives a snapshot on connect and then one JSON message per
// status change. Broadcasts never block the caller: a client whose buffer is
// full loses the message, and a client that cannot be written to is dropped.
package eventhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
)

const (
	writeDeadline = 5 * time.Second
	readDeadline  = 90 * time.Second
	pingInterval  = 30 * time.Second
	// Clients only send control frames.
	maxReadMessageSize = 1024
	clientBuffer       = 32
)

var upgrader = websocket.Upgrader{
	// The hub only binds to loopback addresses.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Message types sent to clients.
const (
	TypeSnapshot  = "snapshot"
	TypeStatus    = "status"
	TypeTriggered = "triggered"
	TypeListener  = "listener"
	TypeBindings  = "bindings"
)

// Message is the JSON payload of every frame.
type Message struct {
	Type     string `json:"type"`
	Time     int64  `json:"time"`
	Active   *bool  `json:"active,omitempty"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Healthy  *bool  `json:"healthy,omitempty"`
	Error    string `json:"error,omitempty"`
	Bindings *int   `json:"bindings,omitempty"`
}

type state struct {
	active   bool
	healthy  bool
	errText  string
	bindings int
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub accepts WebSocket connections on /events and fans status out to them.
type Hub struct {
	addr string
	log  zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	state   state

	server    *http.Server
	url       string
	closeOnce sync.Once
}

// New creates a hub listening on addr once started. An empty addr picks a
// free loopback port.
func New(addr string, log zerolog.Logger) *Hub {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return &Hub{
		addr:    addr,
		log:     log.With().Str("component", "eventhub").Logger(),
		clients: make(map[*client]struct{}),
		state:   state{healthy: true},
	}
}

// Start binds the listener and serves in the background.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("eventhub: already started")
	}
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("eventhub: listen: %w", err)
	}
	h.url = fmt.Sprintf("ws://%s/events", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error().Err(err).Msg("Status server failed")
		}
	}()
	h.log.Info().Str("url", h.url).Msg("Status server started")
	return nil
}

// URL returns the WebSocket address, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// Stop closes every client and shuts the server down. It is idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*client]struct{})
		h.mu.Unlock()
		for c := range clients {
			c.close()
		}

		if h.server == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			stopErr = fmt.Errorf("eventhub: shutdown: %w", err)
		}
		h.log.Info().Msg("Status server stopped")
	})
	return stopErr
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) StatusChanged(active bool) {
	h.mu.Lock()
	h.state.active = active
	h.mu.Unlock()
	h.broadcast(Message{Type: TypeStatus, Active: &active})
}

func (h *Hub) BindingTriggered(b binding.Binding) {
	h.broadcast(Message{Type: TypeTriggered, ID: b.ID, Name: b.Name})
}

func (h *Hub) ListenerDegraded(err error) {
	healthy := err == nil
	msg := Message{Type: TypeListener, Healthy: &healthy}
	if err != nil {
		msg.Error = err.Error()
	}
	h.mu.Lock()
	h.state.healthy = healthy
	h.state.errText = msg.Error
	h.mu.Unlock()
	h.broadcast(msg)
}

func (h *Hub) BindingsChanged(count int) {
	h.mu.Lock()
	h.state.bindings = count
	h.mu.Unlock()
	h.broadcast(Message{Type: TypeBindings, Bindings: &count})
}

func (h *Hub) snapshot() Message {
	h.mu.Lock()
	s := h.state
	h.mu.Unlock()
	return Message{
		Type:     TypeSnapshot,
		Active:   &s.active,
		Healthy:  &s.healthy,
		Error:    s.errText,
		Bindings: &s.bindings,
	}
}

func (h *Hub) broadcast(msg Message) {
	msg.Time = time.Now().UnixMilli()
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn().Err(err).Str("type", msg.Type).Msg("Failed to encode status message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Debug().Str("type", msg.Type).Msg("Client buffer full, message dropped")
		}
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		_ = conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	c := &client{conn: conn, send: make(chan []byte, clientBuffer), done: make(chan struct{})}

	snap := h.snapshot()
	snap.Time = time.Now().UnixMilli()
	if payload, err := json.Marshal(snap); err == nil {
		c.send <- payload
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Status client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop drains control frames until the client goes away.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		h.log.Debug().Msg("Status client disconnected")
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("Status client read failed")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := h.write(c, websocket.TextMessage, payload); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) write(c *client, kind int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(kind, payload); err != nil {
		h.log.Debug().Err(err).Msg("Status client write failed")
		return err
	}
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}
