package models

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope every client frame must follow.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message defines the structure for WebSocket communication from the server
type Message struct {
	Type     string      `json:"type"`
	RoomCode string      `json:"roomCode,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Time     time.Time   `json:"timestamp"`
}

// Client payloads

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// ProgressRequest carries typed characters so far. Fractional values are
// floored.
type ProgressRequest struct {
	Progress float64 `json:"progress"`
	WPM      float64 `json:"wpm"`
}

type FinishRequest struct {
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

type KickRequest struct {
	PlayerID string `json:"playerId"`
}

// Server payloads

// RoomAssignment answers create-room and join-room.
type RoomAssignment struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type RoomError struct {
	Message string `json:"message"`
}

type PlayerView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Progress int     `json:"progress"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Finished bool    `json:"finished"`
	IsHost   bool    `json:"isHost"`
}

type PlayersUpdate struct {
	RoomCode string       `json:"roomCode"`
	State    string       `json:"state"`
	HostID   string       `json:"hostId"`
	Players  []PlayerView `json:"players"`
}

type GameStart struct {
	Text            string `json:"text"`
	TotalCharacters int    `json:"totalCharacters"`
}

type ProgressUpdate struct {
	PlayerID string  `json:"playerId"`
	Progress int     `json:"progress"`
	WPM      float64 `json:"wpm"`
}

type RankingEntry struct {
	Rank      int     `json:"rank"`
	PlayerID  string  `json:"playerId"`
	Name      string  `json:"name"`
	WPM       float64 `json:"wpm"`
	Accuracy  float64 `json:"accuracy"`
	Progress  int     `json:"progress"`
	Finished  bool    `json:"finished"`
	ElapsedMS int64   `json:"elapsedMs,omitempty"`
}

type GameEnd struct {
	RoomCode string         `json:"roomCode"`
	Rule     string         `json:"rule"`
	Results  []RankingEntry `json:"results"`
}

// PlayerKicked is sent to a player the host removed.
type PlayerKicked struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	By       string `json:"by"`
}

type Pong struct {
	Time time.Time `json:"time"`
}

// RoomStatus is returned by the room check endpoint.
type RoomStatus struct {
	Exists  bool   `json:"exists"`
	State   string `json:"state,omitempty"`
	Players int    `json:"players,omitempty"`
}

// ServerStats is returned by the stats endpoint.
type ServerStats struct {
	Rooms       int            `json:"rooms"`
	Players     int            `json:"players"`
	ByState     map[string]int `json:"byState"`
	Connections int            `json:"connections"`
}
