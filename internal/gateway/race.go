package gateway

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/events"
	"github.com/NuZard84/go-typerace-socket/internal/game"
	"github.com/NuZard84/go-typerace-socket/internal/manager"
	"github.com/NuZard84/go-typerace-socket/internal/models"
)

// ROOM MEMBERSHIP =>

func (g *Gateway) handleCreateRoom(connID string, data json.RawMessage) {
	var req models.CreateRoomRequest
	if err := decode(data, &req); err != nil {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}
	name, problem := validateName(req.PlayerName)
	if problem != "" {
		g.sendError(connID, problem)
		return
	}

	room, err := g.registry.CreateRoom(connID, name)
	if err != nil {
		if errors.Is(err, manager.ErrRoomLimit) {
			log.Warn().Err(err).Str("player_id", connID).Msg("room limit reached")
			g.sendError(connID, constants.MsgRoomLimit)
			return
		}
		log.Error().Err(err).Str("player_id", connID).Msg("failed to create room")
		g.sendError(connID, constants.MsgServerBusy)
		return
	}
	g.moveTo(connID, room.Code)

	g.send(connID, room.Code, constants.EventRoomCreated, models.RoomAssignment{RoomCode: room.Code, PlayerID: connID})
	g.broadcast(room, constants.EventPlayersUpdate, room.Snapshot(), "")
	g.emit(events.TypeRoomCreated, room.Code, room.Snapshot())
}

func (g *Gateway) handleJoinRoom(connID string, data json.RawMessage) {
	var req models.JoinRoomRequest
	if err := decode(data, &req); err != nil {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}
	name, problem := validateName(req.PlayerName)
	if problem != "" {
		g.sendError(connID, problem)
		return
	}

	code := manager.NormalizeCode(req.RoomCode)
	if current, ok := g.membership[connID]; ok && current == code {
		// already a member, answer again without touching the room
		g.send(connID, code, constants.EventRoomJoined, models.RoomAssignment{RoomCode: code, PlayerID: connID})
		return
	}

	room, err := g.registry.JoinRoom(code, connID, name)
	if err != nil {
		log.Debug().Err(err).Str("player_id", connID).Str("room_code", code).Msg("join rejected")
		g.sendError(connID, joinErrorMessage(err))
		return
	}
	g.moveTo(connID, room.Code)

	g.send(connID, room.Code, constants.EventRoomJoined, models.RoomAssignment{RoomCode: room.Code, PlayerID: connID})
	g.broadcast(room, constants.EventPlayersUpdate, room.Snapshot(), "")

	if g.startPolicy == constants.StartPolicyAuto && room.Len() >= g.minPlayers {
		g.startRace(room)
	}
}

// moveTo records connID as a member of code and takes it out of the room it
// was in before, if any.
func (g *Gateway) moveTo(connID, code string) {
	previous, ok := g.membership[connID]
	g.membership[connID] = code
	if ok && previous != code {
		g.removeFrom(connID, previous)
	}
}

// leave takes connID out of its room, if it is in one.
func (g *Gateway) leave(connID string) {
	code, ok := g.membership[connID]
	if !ok {
		return
	}
	delete(g.membership, connID)
	g.removeFrom(connID, code)
}

func (g *Gateway) removeFrom(connID, code string) {
	room, removed := g.registry.RemovePlayer(code, connID)
	if !removed {
		return
	}
	if room == nil {
		g.emit(events.TypeRoomClosed, code, nil)
		return
	}

	g.broadcast(room, constants.EventPlayersUpdate, room.Snapshot(), "")
	// the player who left may have been the last one still typing
	g.evaluate(room)
}

// handleKick lets the host remove a player from a room that has not started.
func (g *Gateway) handleKick(connID string, data json.RawMessage) {
	room := g.roomOf(connID)
	if room == nil {
		g.sendError(connID, constants.MsgNotInRoom)
		return
	}

	var req models.KickRequest
	if err := decode(data, &req); err != nil {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}

	if err := room.KickPlayer(connID, req.PlayerID); err != nil {
		g.sendError(connID, kickErrorMessage(err))
		return
	}
	delete(g.membership, req.PlayerID)

	log.Info().
		Str("room_code", room.Code).
		Str("player_id", req.PlayerID).
		Str("by", connID).
		Msg("player kicked")

	g.send(req.PlayerID, room.Code, constants.EventPlayerKicked,
		models.PlayerKicked{RoomCode: room.Code, PlayerID: req.PlayerID, By: connID})
	g.broadcast(room, constants.EventPlayersUpdate, room.Snapshot(), "")
}

// RACE FLOW =>

func (g *Gateway) handleStartRace(connID string) {
	room := g.roomOf(connID)
	if room == nil {
		g.sendError(connID, constants.MsgNotInRoom)
		return
	}
	if g.startPolicy != constants.StartPolicyHost {
		g.sendError(connID, constants.MsgAutoStartOnly)
		return
	}
	if room.Status != constants.StatusWaiting {
		log.Debug().Str("room_code", room.Code).Msg("duplicate start ignored")
		return
	}
	if host := room.Host(); host == nil || host.ID != connID {
		g.sendError(connID, constants.MsgHostOnly)
		return
	}
	if room.Len() < g.minPlayers {
		g.sendError(connID, constants.MsgNotEnoughPlayers)
		return
	}
	g.startRace(room)
}

func (g *Gateway) startRace(room *game.Room) {
	text := g.passages.Choose()
	if err := room.StartRace(text); err != nil {
		log.Debug().Err(err).Str("room_code", room.Code).Msg("race not started")
		return
	}

	log.Info().
		Str("room_code", room.Code).
		Int("players", room.Len()).
		Int("text_length", room.TextLength()).
		Msg("race started")

	start := models.GameStart{Text: text, TotalCharacters: room.TextLength()}
	g.broadcast(room, constants.EventGameStart, start, "")
	g.emit(events.TypeRaceStarted, room.Code, room.Snapshot())
}

func (g *Gateway) handleProgress(connID string, data json.RawMessage) {
	room := g.roomOf(connID)
	if room == nil {
		log.Debug().Str("player_id", connID).Msg("progress from connection without a room")
		return
	}

	var req models.ProgressRequest
	if err := decode(data, &req); err != nil {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}

	player, err := room.RecordProgress(connID, characters(req.Progress), req.WPM)
	if err != nil {
		g.dropOrReport(connID, room, err)
		return
	}

	update := models.ProgressUpdate{PlayerID: connID, Progress: player.Progress, WPM: player.WPM}
	g.broadcast(room, constants.EventPlayerProgress, update, connID)
	g.evaluate(room)
}

func (g *Gateway) handleFinish(connID string, data json.RawMessage) {
	room := g.roomOf(connID)
	if room == nil {
		log.Debug().Str("player_id", connID).Msg("finish from connection without a room")
		return
	}

	var req models.FinishRequest
	if err := decode(data, &req); err != nil {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}

	if _, err := room.MarkFinished(connID, req.WPM, req.Accuracy); err != nil {
		g.dropOrReport(connID, room, err)
		return
	}
	g.evaluate(room)
}

// evaluate concludes the race when the evaluator says it is over. Room.Finish
// only succeeds once, so game-end is broadcast at most once per room.
func (g *Gateway) evaluate(room *game.Room) {
	ranking, done := g.evaluator.Evaluate(room)
	if !done || !room.Finish(ranking) {
		return
	}

	log.Info().
		Str("room_code", room.Code).
		Str("rule", string(g.evaluator.Rule())).
		Int("ranked", len(ranking)).
		Msg("race finished")

	result := models.GameEnd{RoomCode: room.Code, Rule: string(g.evaluator.Rule()), Results: ranking}
	g.broadcast(room, constants.EventGameEnd, result, "")
	g.emit(events.TypeRaceFinished, room.Code, result)
}

// dropOrReport handles errors from room mutations. Only bad input is
// reported back; the rest are late or racing messages and are dropped.
func (g *Gateway) dropOrReport(connID string, room *game.Room, err error) {
	if errors.Is(err, game.ErrInvalidMetrics) {
		g.sendError(connID, constants.MsgInvalidMessage)
		return
	}
	log.Debug().
		Err(err).
		Str("player_id", connID).
		Str("room_code", room.Code).
		Str("state", room.Status).
		Msg("event ignored")
}

func (g *Gateway) roomOf(connID string) *game.Room {
	code, ok := g.membership[connID]
	if !ok {
		return nil
	}
	room, err := g.registry.GetRoom(code)
	if err != nil {
		return nil
	}
	return room
}

func (g *Gateway) emit(eventType events.Type, code string, payload interface{}) {
	g.emitter.Emit(events.New(eventType, code, g.clock.Now(), payload))
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, manager.ErrRoomNotFound):
		return constants.MsgRoomNotFound
	case errors.Is(err, game.ErrRoomFull):
		return constants.MsgRoomFull
	case errors.Is(err, game.ErrRaceInProgress):
		return constants.MsgRaceInProgress
	default:
		return constants.MsgInvalidMessage
	}
}

func kickErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrNotHost):
		return constants.MsgKickHostOnly
	case errors.Is(err, game.ErrKickHost):
		return constants.MsgKickSelf
	case errors.Is(err, game.ErrUnknownPlayer):
		return constants.MsgPlayerNotFound
	case errors.Is(err, game.ErrRaceInProgress):
		return constants.MsgRaceInProgress
	default:
		return constants.MsgInvalidMessage
	}
}

// characters floors a reported progress value. Negative input stays negative
// so the room rejects it.
func characters(progress float64) int {
	if progress > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(progress))
}

func validateName(raw string) (string, string) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", constants.MsgNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxNameLength {
		return "", constants.MsgNameTooLong
	}
	return name, ""
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
