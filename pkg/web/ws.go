package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/ipc"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var validate = validator.New()

// Client is one WebSocket connection from the embedded UI.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	inv    Invoker
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks open clients so shutdown can close them.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	log     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{clients: make(map[*Client]struct{}), log: log}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.cancel()
		if h.log != nil {
			h.log.Debug("websocket client disconnected", slog.String("client", c.id))
		}
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// ServeWs upgrades the request and serves method calls over the socket.
func ServeWs(hub *Hub, inv Invoker, allowOrigin string, log *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowOrigin, r)
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		// The request context ends when the handler returns.
		ctx, cancel := context.WithCancel(context.Background())
		client := &Client{
			id:     uuid.NewString(),
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, 256),
			inv:    inv,
			log:    log,
			ctx:    ctx,
			cancel: cancel,
		}
		hub.register(client)
		log.Debug("websocket client connected", slog.String("client", client.id))

		go client.writePump()
		go client.readPump()
	}
}

// readPump decodes requests and answers each one before reading the next.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		resp := c.handle(message)
		payload, err := json.Marshal(resp)
		if err != nil {
			c.log.Error("response marshal failed", slog.String("error", err.Error()))
			continue
		}
		if !c.enqueue(payload) {
			return
		}
	}
}

func (c *Client) handle(message []byte) ipc.Response {
	var req ipc.Request
	if err := json.Unmarshal(message, &req); err != nil {
		return ipc.Response{Error: channel.Errorf(channel.CodeInvalidRequest, "invalid json", nil)}
	}
	if err := validate.Struct(req); err != nil {
		return ipc.Response{ID: req.ID, Error: channel.Errorf(channel.CodeInvalidRequest, "method required", nil)}
	}
	res, ev := c.inv.Invoke(c.ctx, req.Channel, req.Call())
	return ipc.NewResponse(req.ID, ev.TraceID, res)
}

// enqueue reports false once the client has been unregistered.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// writePump pumps responses to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
