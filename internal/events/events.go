// Package events publishes race lifecycle events outside the process.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Type is the kind of race lifecycle event
type Type string

const (
	TypeRoomCreated  Type = "RoomCreated"
	TypeRaceStarted  Type = "RaceStarted"
	TypeRaceFinished Type = "RaceFinished"
	TypeRoomClosed   Type = "RoomClosed"
)

// Event is the envelope published for every lifecycle change.
type Event struct {
	ID        string          `json:"eventId"`
	Type      Type            `json:"eventType"`
	RoomCode  string          `json:"roomCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh id. A payload that cannot be marshalled is
// dropped from the envelope.
func New(eventType Type, roomCode string, at time.Time, payload interface{}) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RoomCode:  roomCode,
		Timestamp: at.UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event payload")
		} else {
			ev.Payload = data
		}
	}
	return ev
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("room_code", event.RoomCode).
		RawJSON("payload", payloadOrNull(event.Payload)).
		Msg("race event")
	return nil
}

func (LogPublisher) Close() error { return nil }

func payloadOrNull(p json.RawMessage) []byte {
	if len(p) == 0 {
		return []byte("null")
	}
	return p
}
