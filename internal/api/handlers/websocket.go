package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/graph"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/logger"
	"github.com/onnwee/knowledge-cluster-map/engine/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware handles origin policy
		return true
	},
}

// WebSocketMessage is the envelope for every message sent to clients.
type WebSocketMessage struct {
	Type    string      `json:"type"` // "positions", "status", "error"
	Payload interface{} `json:"payload"`
}

// clientCommand is a message received from a client: drag interactions and
// manual reheats.
type clientCommand struct {
	Type  string  `json:"type"` // "pin", "unpin", "reheat"
	ID    string  `json:"id,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Alpha float64 `json:"alpha,omitempty"`
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and fans layout position updates
// out to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	svc        *graph.Service
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub over the layout service.
func NewHub(svc *graph.Service) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		svc:        svc,
	}
}

// Run starts the hub's main loop and the position update feed.
func (h *Hub) Run(ctx context.Context) {
	go h.pumpPositions(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("WebSocket client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnections.Dec()
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop the connection
					close(client.send)
					delete(h.clients, client)
					metrics.WebSocketConnections.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// pumpPositions forwards layout position updates from the service to all
// connected clients.
func (h *Hub) pumpPositions(ctx context.Context) {
	updates, cancel := h.svc.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-updates:
			if !ok {
				return
			}
			h.mu.RLock()
			clientCount := len(h.clients)
			h.mu.RUnlock()
			if clientCount == 0 {
				continue
			}

			data, err := json.Marshal(WebSocketMessage{Type: "positions", Payload: batch})
			if err != nil {
				logger.Error("Failed to marshal position update", "error", err)
				continue
			}
			select {
			case h.broadcast <- data:
			default:
				logger.Warn("WebSocket broadcast buffer full, dropping frame")
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		c.handleCommand(cmd)
	}
}

// handleCommand applies a client interaction to the layout service. Pins and
// unpins hit storage; reheats only touch the live simulation.
func (c *Client) handleCommand(cmd clientCommand) {
	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCtx()

	switch cmd.Type {
	case "pin":
		if cmd.ID == "" {
			return
		}
		if err := c.hub.svc.PinNode(ctx, cmd.ID, cmd.X, cmd.Y); err != nil {
			logger.Warn("WebSocket pin failed", "error", err, "node_id", cmd.ID)
		}
	case "unpin":
		if cmd.ID == "" {
			return
		}
		if err := c.hub.svc.UnpinNode(ctx, cmd.ID); err != nil {
			logger.Warn("WebSocket unpin failed", "error", err, "node_id", cmd.ID)
		}
	case "reheat":
		alpha := cmd.Alpha
		if alpha <= 0 || alpha > 1 {
			alpha = 0.3
		}
		c.hub.svc.Reheat(alpha, 0)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler handles WebSocket connections for live layout updates.
type WebSocketHandler struct {
	hub *Hub
}

// NewWebSocketHandler creates the handler and starts its hub in the
// background.
func NewWebSocketHandler(svc *graph.Service) *WebSocketHandler {
	hub := NewHub(svc)
	go hub.Run(context.Background())
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket upgrades the connection and registers the client.
// GET /graph/ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 256)}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()

	// Send the current layout status as a greeting so clients can decide
	// whether to fetch a fresh snapshot.
	if data, err := json.Marshal(WebSocketMessage{Type: "status", Payload: h.hub.svc.Status()}); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}
}
