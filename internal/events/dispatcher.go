package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Dispatcher hands events to a Publisher on its own goroutine so callers
// never wait on the broker.
type Dispatcher struct {
	publisher Publisher
	queue     chan Event
}

func NewDispatcher(publisher Publisher, size int) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan Event, size),
	}
}

// Emit queues an event and drops it when the queue is full.
func (d *Dispatcher) Emit(event Event) {
	select {
	case d.queue <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("room_code", event.RoomCode).
			Msg("event queue full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Msg("event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.flush()
			log.Info().Msg("event dispatcher stopped")
			return
		case event := <-d.queue:
			d.publish(context.Background(), event)
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(parent context.Context, event Event) {
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Str("room_code", event.RoomCode).
			Msg("failed to publish event")
	}
}
