package game

import "errors"

var (
	ErrUnknownPlayer  = errors.New("player is not a member of this room")
	ErrDuplicateStart = errors.New("race has already been started")
	ErrRaceNotActive  = errors.New("race is not active")
	ErrRaceInProgress = errors.New("race already in progress")
	ErrRoomFull       = errors.New("room is full")
	ErrPlayerExists   = errors.New("player is already in this room")
	ErrInvalidMetrics = errors.New("progress and speed must not be negative")
	ErrEmptyPassage   = errors.New("race text must not be empty")
	ErrUnknownRule    = errors.New("unknown finish rule")
	ErrNotHost        = errors.New("only the host can do this")
	ErrKickHost       = errors.New("the host cannot kick itself")
)
