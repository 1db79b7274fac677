package display

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roman-kulish/sounding-telemetry/internal/live"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
	forwardBufferSize = 16

	writeTimeout = 5 * time.Second
)

// WithHubLogger sets the logger for the hub
func WithHubLogger(logger *slog.Logger) func(*Hub) {
	return func(h *Hub) {
		h.logger = logger.With(slog.String("component", "hub"))
	}
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// Hub pushes every live view snapshot to the connected websocket clients.
// One goroutine, Run, owns the client set; a client that cannot keep up
// misses snapshots instead of slowing the others down.
type Hub struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	done    chan struct{}
	clients map[*client]bool

	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.RWMutex
	last live.Snapshot
	msg  []byte
}

// NewHub creates a Hub. Run must be called for clients to be served.
func NewHub(options ...func(*Hub)) *Hub {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	h := Hub{
		forward:  make(chan []byte, forwardBufferSize),
		join:     make(chan *client),
		leave:    make(chan *client),
		done:     make(chan struct{}),
		clients:  make(map[*client]bool),
		upgrader: websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize},
		logger:   logger,
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// Run serves joins, leaves and snapshots until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.join:
			h.clients[c] = true
			h.logger.Debug("client joined", slog.Int("clients", len(h.clients)))

		case c := <-h.leave:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Debug("client left", slog.Int("clients", len(h.clients)))

		case msg := <-h.forward:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Debug("client is not keeping up, snapshot skipped")
				}
			}
		}
	}
}

// Refreshed keeps s as the latest snapshot and forwards it to the clients.
// It never blocks the caller.
func (h *Hub) Refreshed(s live.Snapshot) {
	msg, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("encoding snapshot: " + err.Error())
		return
	}

	h.mu.Lock()
	h.last, h.msg = s, msg
	h.mu.Unlock()

	select {
	case h.forward <- msg:
	default:
		h.logger.Debug("hub is busy, snapshot skipped")
	}
}

// Last returns the latest snapshot.
func (h *Hub) Last() live.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.last
}

// ServeHTTP upgrades the request to a websocket and streams snapshots to it,
// starting with the latest one.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("upgrading websocket: " + err.Error())
		return
	}

	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}

	h.mu.RLock()
	if h.msg != nil {
		c.send <- h.msg
	}
	h.mu.RUnlock()

	select {
	case h.join <- c:
	case <-h.done:
		_ = socket.Close()
		return
	}

	go c.write()
	c.read()

	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// read discards incoming messages until the peer goes away.
func (c *client) read() {
	defer c.socket.Close()

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()

	for msg := range c.send {
		_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	_ = c.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
}
