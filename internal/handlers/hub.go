package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
)

// HubConfig holds configuration for websocket connections.
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	AllowedOrigins  []string
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    constants.WriteTimeout,
		ReadTimeout:     constants.ReadTimeout,
		PingInterval:    constants.PingInterval,
		MaxMessageSize:  constants.MaxMessageSize,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  constants.SendBufferSize,
		AllowedOrigins:  []string{"*"},
	}
}

// Connection is one websocket client. Its ID doubles as the player id.
type Connection struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time

	hub *Hub
}

// Hub tracks live connections and delivers encoded messages to them. It is
// the gateway's transport.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	config      HubConfig
}

func NewHub(config HubConfig) *Hub {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = constants.SendBufferSize
	}
	return &Hub{
		connections: make(map[string]*Connection),
		config:      config,
	}
}

// Send queues payload for connID without blocking. A connection whose buffer
// is full is closed, which in turn removes its player from the room.
func (h *Hub) Send(connID string, payload []byte) {
	h.mu.RLock()
	conn, ok := h.connections[connID]
	delivered := false
	if ok {
		select {
		case conn.Send <- payload:
			delivered = true
		default:
		}
	}
	h.mu.RUnlock()

	if !ok {
		log.Debug().Str("connection_id", connID).Msg("message for unknown connection dropped")
		return
	}
	if !delivered {
		log.Warn().
			Str("connection_id", connID).
			Msg("connection send buffer full, closing connection")
		h.unregister(conn)
		conn.Conn.Close()
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CloseAll closes every connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.unregister(c)
		c.Conn.Close()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.hub = h
	h.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

// unregister is safe to call more than once for the same connection.
func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.connections[conn.ID]; !ok || current != conn {
		return
	}
	delete(h.connections, conn.ID)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("connection unregistered")
}

// writePump drains Send into the socket and keeps the connection alive with
// pings.
func (c *Connection) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}
