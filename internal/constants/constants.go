package constants

import "time"

// Room lifecycle states. A room only ever moves forward through them.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// Start policies. Exactly one is used per deployment.
const (
	StartPolicyAuto = "auto"
	StartPolicyHost = "host"
)

// Finish rules understood by the race completion evaluator.
const (
	FinishRuleFirstToFinish = "first-to-finish"
	FinishRuleAllFinish     = "all-finish"
)

// Client -> server event types
const (
	EventCreateRoom     = "create-room"
	EventJoinRoom       = "join-room"
	EventPlayerProgress = "player-progress"
	EventFinish         = "finish"
	EventStartRace      = "start-race"
	EventLeaveRoom      = "leave-room"
	EventKickPlayer     = "kick-player"
	EventPing           = "ping"
)

// Server -> client event types
const (
	EventRoomCreated   = "room-created"
	EventRoomJoined    = "room-joined"
	EventRoomError     = "room-error"
	EventPlayersUpdate = "players-update"
	EventGameStart     = "game-start"
	EventGameEnd       = "game-end"
	EventPlayerKicked  = "player-kicked"
	EventPong          = "pong"
)

// Game configuration defaults
const (
	MinPlayersToStart = 2
	MaximumPlayers    = 8
	RoomCodeLength    = 6
	RoomCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MaxNameLength     = 32

	// attempts at finding an unused room code before giving up
	MaxCodeAttempts = 32
)

// WebSocket defaults
const (
	WriteTimeout   = 10 * time.Second
	ReadTimeout    = 60 * time.Second
	PingInterval   = 30 * time.Second
	MaxMessageSize = 4096
	SendBufferSize = 256
)

// Messages delivered to clients through room-error
const (
	MsgRoomNotFound     = "Room not found"
	MsgRoomFull         = "Room is full"
	MsgRaceInProgress   = "Race already in progress"
	MsgNameRequired     = "Player name is required"
	MsgNameTooLong      = "Player name is too long"
	MsgInvalidMessage   = "Invalid message"
	MsgUnknownEvent     = "Unknown event type"
	MsgNotInRoom        = "You are not in a room"
	MsgHostOnly         = "Only the host can start the race"
	MsgNotEnoughPlayers = "Not enough players to start"
	MsgAutoStartOnly    = "This server starts races automatically"
	MsgServerBusy       = "Could not create a room, try again"
	MsgRoomLimit        = "Too many rooms are open, try again later"
	MsgKickHostOnly     = "Only the host can remove players"
	MsgKickSelf         = "The host cannot remove itself"
	MsgPlayerNotFound   = "Player is not in this room"
)
