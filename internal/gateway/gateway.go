// Package gateway is the only code allowed to mutate rooms. Every inbound
// event, from every connection, is queued and handled to completion on a
// single goroutine, which is what keeps the registry and rooms lock-free.
package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/events"
	"github.com/NuZard84/go-typerace-socket/internal/game"
	"github.com/NuZard84/go-typerace-socket/internal/manager"
	"github.com/NuZard84/go-typerace-socket/internal/models"
	"github.com/NuZard84/go-typerace-socket/internal/passage"
)

var ErrStopped = errors.New("gateway is not running")

// Transport delivers encoded messages to a connection. Send must not block.
type Transport interface {
	Send(connID string, payload []byte)
}

// Emitter receives race lifecycle events. Emit must not block.
type Emitter interface {
	Emit(event events.Event)
}

// PassageChooser picks the text for a race that is about to start.
type PassageChooser interface {
	Choose() string
}

type nopEmitter struct{}

func (nopEmitter) Emit(events.Event) {}

type Option func(*Gateway)

func WithEvaluator(e *game.Evaluator) Option {
	return func(g *Gateway) { g.evaluator = e }
}

func WithPassages(p PassageChooser) Option {
	return func(g *Gateway) { g.passages = p }
}

func WithEmitter(e Emitter) Option {
	return func(g *Gateway) { g.emitter = e }
}

func WithClock(c clockwork.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithStartPolicy selects constants.StartPolicyAuto or constants.StartPolicyHost.
func WithStartPolicy(policy string) Option {
	return func(g *Gateway) { g.startPolicy = policy }
}

func WithMinPlayers(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.minPlayers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.queueSize = n
		}
	}
}

type eventKind int

const (
	kindMessage eventKind = iota
	kindDisconnect
	kindQuery
)

type inbound struct {
	kind   eventKind
	connID string
	data   []byte
	query  func(*manager.Registry)
	done   chan struct{}
}

// Gateway turns client events into room mutations and broadcasts.
type Gateway struct {
	registry    *manager.Registry
	transport   Transport
	evaluator   *game.Evaluator
	passages    PassageChooser
	emitter     Emitter
	clock       clockwork.Clock
	startPolicy string
	minPlayers  int
	queueSize   int

	// connection id -> code of the room it plays in. A connection is in at
	// most one room.
	membership map[string]string

	queue   chan inbound
	stopped chan struct{}
}

func New(registry *manager.Registry, transport Transport, opts ...Option) *Gateway {
	g := &Gateway{
		registry:    registry,
		transport:   transport,
		evaluator:   game.NewEvaluator(game.FirstToFinish),
		passages:    passage.NewCatalog(),
		emitter:     nopEmitter{},
		clock:       clockwork.NewRealClock(),
		startPolicy: constants.StartPolicyAuto,
		minPlayers:  constants.MinPlayersToStart,
		queueSize:   1024,
		membership:  make(map[string]string),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.queue = make(chan inbound, g.queueSize)
	return g
}

// Run processes queued events one at a time until ctx is cancelled. It must
// be called exactly once.
func (g *Gateway) Run(ctx context.Context) {
	defer close(g.stopped)

	log.Info().
		Str("start_policy", g.startPolicy).
		Str("finish_rule", string(g.evaluator.Rule())).
		Int("min_players", g.minPlayers).
		Msg("gateway started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway shutting down")
			return
		case ev := <-g.queue:
			g.process(ev)
		}
	}
}

// HandleMessage queues a raw client frame. Frames from one connection are
// processed in the order this is called.
func (g *Gateway) HandleMessage(ctx context.Context, connID string, data []byte) error {
	return g.enqueue(ctx, inbound{kind: kindMessage, connID: connID, data: data})
}

// HandleDisconnect queues the removal of a closed connection from its room.
func (g *Gateway) HandleDisconnect(ctx context.Context, connID string) error {
	return g.enqueue(ctx, inbound{kind: kindDisconnect, connID: connID})
}

// Query runs fn on the gateway goroutine and waits for it. fn must only read.
func (g *Gateway) Query(ctx context.Context, fn func(*manager.Registry)) error {
	done := make(chan struct{})
	if err := g.enqueue(ctx, inbound{kind: kindQuery, query: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.stopped:
		return ErrStopped
	}
}

func (g *Gateway) enqueue(ctx context.Context, ev inbound) error {
	select {
	case g.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.stopped:
		return ErrStopped
	}
}

func (g *Gateway) process(ev inbound) {
	switch ev.kind {
	case kindMessage:
		g.handleMessage(ev.connID, ev.data)
	case kindDisconnect:
		g.handleDisconnect(ev.connID)
	case kindQuery:
		ev.query(g.registry)
		close(ev.done)
	}
}

func (g *Gateway) handleMessage(connID string, data []byte) {
	var msg models.Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("player_id", connID).Msg("malformed client frame")
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}

	log.Debug().
		Str("player_id", connID).
		Str("event_type", msg.Type).
		Msg("client event")

	switch msg.Type {
	case constants.EventCreateRoom:
		g.handleCreateRoom(connID, msg.Data)
	case constants.EventJoinRoom:
		g.handleJoinRoom(connID, msg.Data)
	case constants.EventPlayerProgress:
		g.handleProgress(connID, msg.Data)
	case constants.EventFinish:
		g.handleFinish(connID, msg.Data)
	case constants.EventStartRace:
		g.handleStartRace(connID)
	case constants.EventLeaveRoom:
		g.leave(connID)
	case constants.EventKickPlayer:
		g.handleKick(connID, msg.Data)
	case constants.EventPing:
		g.send(connID, "", constants.EventPong, models.Pong{Time: g.clock.Now()})
	default:
		g.sendError(connID, constants.MsgUnknownEvent)
	}
}

func (g *Gateway) handleDisconnect(connID string) {
	log.Debug().Str("player_id", connID).Msg("connection closed")
	g.leave(connID)
}
