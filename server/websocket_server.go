package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/messages"
	"github.com/room4-2/serviceswarm/turn"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxClientBytes = 4 * 1024
	sendQueueSize  = 64
)

// Hub streams turn events to monitor websocket clients. It implements
// turn.Observer.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*monitorClient]struct{}
	closed   bool
}

type monitorClient struct {
	conn      *websocket.Conn
	writeChan chan *messages.ServerMessage
	closeChan chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	callID string // subscription filter
}

// NewHub creates a Hub accepting browser origins in allowedOrigins
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients: make(map[*monitorClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4 * 1024,
			WriteBufferSize:   16 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ServeHTTP upgrades the request and serves one monitor client until it
// disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Monitor websocket upgrade failed", zap.Error(err))
		return
	}

	c := &monitorClient{
		conn:      conn,
		writeChan: make(chan *messages.ServerMessage, sendQueueSize),
		closeChan: make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	logger.Info("Monitor client connected", zap.String("remote", r.RemoteAddr))

	go c.writePump()
	c.queueMessage(messages.NewStatusMessage("connected", "Streaming turn events"))
	c.readPump()

	h.unregister(c)
	logger.Info("Monitor client disconnected", zap.String("remote", r.RemoteAddr))
}

// TurnCompleted fans ev out to every subscribed client without blocking
func (h *Hub) TurnCompleted(ev turn.Event) {
	msg := messages.NewTurnMessage(ev.CallID, ev)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(ev.CallID) {
			c.queueMessage(msg)
		}
	}
}

// ClientCount returns the number of connected monitor clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*monitorClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *monitorClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *monitorClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (c *monitorClient) wants(callID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callID == "" || c.callID == callID
}

// queueMessage drops the message when the client is slow or gone
func (c *monitorClient) queueMessage(msg *messages.ServerMessage) {
	select {
	case <-c.closeChan:
	case c.writeChan <- msg:
	default:
	}
}

func (c *monitorClient) close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		_ = c.conn.Close()
	})
}

// writePump handles all outgoing messages in a single goroutine
func (c *monitorClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg := <-c.writeChan:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

			// Drain whatever queued up meanwhile
			for n := len(c.writeChan); n > 0; n-- {
				if err := c.conn.WriteJSON(<-c.writeChan); err != nil {
					return
				}
			}
		}
	}
}

func (c *monitorClient) readPump() {
	c.conn.SetReadLimit(maxClientBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg messages.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Monitor read failed", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(msg)
	}
}

func (c *monitorClient) handleMessage(msg messages.ClientMessage) {
	if msg.Type != "control" {
		c.queueMessage(messages.NewErrorMessage(messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
		return
	}

	var payload messages.ControlPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.queueMessage(messages.NewErrorMessage(messages.ErrCodeInvalidMessage, "Invalid control payload"))
		return
	}

	switch payload.Action {
	case "ping":
		c.queueMessage(messages.NewStatusMessage("pong", ""))
	case "subscribe":
		c.mu.Lock()
		c.callID = payload.CallID
		c.mu.Unlock()
		c.queueMessage(messages.NewStatusMessage("subscribed", payload.CallID))
	default:
		c.queueMessage(messages.NewErrorMessage(messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}
