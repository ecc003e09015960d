package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxMessage   = 4096
	sendQueueLen = 64
)

// Message types exchanged over the websocket.
const (
	TypeHello   = "hello"
	TypeReading = "reading"
	TypeShade   = "shade"
	TypeCommand = "command"
	TypeWindow  = "window"
	TypeError   = "error"
)

// InboundMessage is what browsers send. Commands carry an action of "A" or
// "F"; window messages report what the page shows and are only logged.
type InboundMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Status string `json:"status,omitempty"`
}

// ReadingMessage announces a new sample.
type ReadingMessage struct {
	Type string `json:"type"`
	telemetry.Sample
}

// ShadeMessage announces a shade command.
type ShadeMessage struct {
	Type     string         `json:"type"`
	Position guard.Position `json:"position"`
	Source   string         `json:"source"`
}

// HelloMessage tells a new client its id.
type HelloMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ErrorMessage reports a rejected request.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// CommandFunc applies a command on behalf of a source.
type CommandFunc func(cmd guard.Command, source string) error

// Hub tracks websocket clients and fans messages out to them.
type Hub struct {
	upgrader  websocket.Upgrader
	onCommand CommandFunc

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub that routes client commands to onCommand.
func NewHub(onCommand CommandFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		onCommand: onCommand,
		clients:   make(map[string]*Client),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(msg)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    h,
		sendCh: make(chan any, sendQueueLen),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	log.Info().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	go c.writePump()
	c.Send(HelloMessage{Type: TypeHello, ID: c.id})
	c.readPump()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()

	log.Info().Str("client", c.id).Msg("WebSocket client disconnected")
}

// Client is one websocket connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	sendCh chan any
	done   chan struct{}
	mu     sync.Mutex
}

// ID returns the client's session id.
func (c *Client) ID() string { return c.id }

// Send queues msg, dropping it when the client is slow.
func (c *Client) Send(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		log.Warn().Str("client", c.id).Msg("Dropping message, client queue full")
	}
}

// Close closes the connection once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", c.id).Msg("WebSocket read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("client", c.id).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(ErrorMessage{Type: TypeError, Error: "invalid message"})
		return
	}

	switch msg.Type {
	case TypeCommand:
		cmd, err := ParseAction(msg.Action)
		if err != nil {
			c.Send(ErrorMessage{Type: TypeError, Error: err.Error()})
			return
		}
		if c.hub.onCommand == nil {
			return
		}
		if err := c.hub.onCommand(cmd, "ws:"+c.id); err != nil {
			c.Send(ErrorMessage{Type: TypeError, Error: err.Error()})
		}
	case TypeWindow:
		log.Info().Str("client", c.id).Str("status", msg.Status).Msg("Window status")
	default:
		c.Send(ErrorMessage{Type: TypeError, Error: "unknown message type " + msg.Type})
	}
}
