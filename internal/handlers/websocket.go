package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/manager"
)

// Gateway is the part of gateway.Gateway the HTTP layer needs.
type Gateway interface {
	HandleMessage(ctx context.Context, connID string, data []byte) error
	HandleDisconnect(ctx context.Context, connID string) error
	Query(ctx context.Context, fn func(*manager.Registry)) error
}

type Handler struct {
	gateway  Gateway
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(gateway Gateway, hub *Hub) *Handler {
	return &Handler{
		gateway: gateway,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  hub.config.ReadBufferSize,
			WriteBufferSize: hub.config.WriteBufferSize,
			CheckOrigin:     hub.checkOrigin,
		},
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. The player id is assigned here, never taken from the client.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		ID:          uuid.New().String(),
		Conn:        ws,
		Send:        make(chan []byte, h.hub.config.SendBufferSize),
		ConnectedAt: time.Now(),
	}
	h.hub.register(conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")

	go conn.writePump()
	h.readPump(conn)
}

// readPump forwards every frame to the gateway in arrival order and reports
// the disconnect once the socket is gone.
func (h *Handler) readPump(c *Connection) {
	// connections outlive the upgrade request, so the gateway calls are not
	// tied to r.Context()
	ctx := context.Background()
	cfg := h.hub.config

	defer func() {
		h.hub.unregister(c)
		c.Conn.Close()
		if err := h.gateway.HandleDisconnect(ctx, c.ID); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("disconnect not delivered")
		}
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close")
			}
			return
		}

		if err := h.gateway.HandleMessage(ctx, c.ID, message); err != nil {
			log.Warn().Err(err).Str("connection_id", c.ID).Msg("gateway unavailable, closing connection")
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
