package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/game"
	"github.com/NuZard84/go-typerace-socket/internal/models"
)

func (g *Gateway) encode(code, eventType string, data interface{}) ([]byte, bool) {
	payload, err := json.Marshal(models.Message{
		Type:     eventType,
		RoomCode: code,
		Data:     data,
		Time:     g.clock.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to encode message")
		return nil, false
	}
	return payload, true
}

func (g *Gateway) send(connID, code, eventType string, data interface{}) {
	if payload, ok := g.encode(code, eventType, data); ok {
		g.transport.Send(connID, payload)
	}
}

// sendError answers only the connection that caused the error.
func (g *Gateway) sendError(connID, message string) {
	g.send(connID, g.membership[connID], constants.EventRoomError, models.RoomError{Message: message})
}

// broadcast encodes once and delivers to every member of room except skip.
func (g *Gateway) broadcast(room *game.Room, eventType string, data interface{}, skip string) {
	payload, ok := g.encode(room.Code, eventType, data)
	if !ok {
		return
	}
	for _, p := range room.Players() {
		if p.ID == skip {
			continue
		}
		g.transport.Send(p.ID, payload)
	}
}
