package game

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/models"
)

// Room is a single race session. It has no lock of its own: rooms are only
// touched from the gateway's event loop.
type Room struct {
	Code        string
	Text        string
	Status      string
	CreatedAt   time.Time
	StartedAt   *time.Time
	MaxCapacity int

	// passage length in characters, which is what progress counts
	length int

	players map[string]*Player
	order   []string // join order, first entry is the host
	ranking []models.RankingEntry
	clock   clockwork.Clock
}

func NewRoom(code string, capacity int, clock clockwork.Clock) *Room {
	if capacity <= 0 {
		capacity = constants.MaximumPlayers
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Room{
		Code:        code,
		Status:      constants.StatusWaiting,
		CreatedAt:   clock.Now(),
		MaxCapacity: capacity,
		players:     make(map[string]*Player),
		clock:       clock,
	}
}

// PLAYER MANAGEMENT =>

// AddPlayer appends a player to the room. Duplicate names are allowed.
func (room *Room) AddPlayer(id, name string) (*Player, error) {
	if room.Status != constants.StatusWaiting {
		return nil, ErrRaceInProgress
	}
	if _, ok := room.players[id]; ok {
		return nil, ErrPlayerExists
	}
	if len(room.players) >= room.MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d", ErrRoomFull, room.MaxCapacity)
	}

	p := newPlayer(id, name, room.clock.Now())
	room.players[id] = p
	room.order = append(room.order, id)
	return p, nil
}

// RemovePlayer drops a player and reports whether it was a member.
func (room *Room) RemovePlayer(id string) bool {
	if _, ok := room.players[id]; !ok {
		return false
	}
	delete(room.players, id)
	for i, pid := range room.order {
		if pid == id {
			room.order = append(room.order[:i], room.order[i+1:]...)
			break
		}
	}
	return true
}

func (room *Room) Player(id string) (*Player, bool) {
	p, ok := room.players[id]
	return p, ok
}

// Players returns the members in join order.
func (room *Room) Players() []*Player {
	out := make([]*Player, 0, len(room.order))
	for _, id := range room.order {
		out = append(out, room.players[id])
	}
	return out
}

func (room *Room) Len() int {
	return len(room.order)
}

func (room *Room) IsEmpty() bool {
	return len(room.order) == 0
}

// Host is the earliest joiner still present, or nil for an empty room.
func (room *Room) Host() *Player {
	if len(room.order) == 0 {
		return nil
	}
	return room.players[room.order[0]]
}

// KickPlayer removes target on behalf of the host. Kicking is only allowed
// before the race starts and the host cannot kick itself.
func (room *Room) KickPlayer(hostID, targetID string) error {
	if room.Status != constants.StatusWaiting {
		return ErrRaceInProgress
	}
	if host := room.Host(); host == nil || host.ID != hostID {
		return ErrNotHost
	}
	if targetID == hostID {
		return ErrKickHost
	}
	if !room.RemovePlayer(targetID) {
		return ErrUnknownPlayer
	}
	return nil
}

// GAME STATE MANAGEMENT =>

// StartRace moves a waiting room to active with the given passage.
func (room *Room) StartRace(text string) error {
	if room.Status != constants.StatusWaiting {
		return ErrDuplicateStart
	}
	if text == "" {
		return ErrEmptyPassage
	}

	now := room.clock.Now()
	room.Text = text
	room.length = utf8.RuneCountInString(text)
	room.StartedAt = &now
	room.Status = constants.StatusActive
	return nil
}

// TextLength is the number of characters in the race text, zero before the
// race starts.
func (room *Room) TextLength() int {
	return room.length
}

// RecordProgress stores client-reported progress. Progress never moves
// backwards and is capped at the passage length; reaching the end finishes
// the player.
func (room *Room) RecordProgress(playerID string, progress int, wpm float64) (*Player, error) {
	if room.Status != constants.StatusActive {
		return nil, ErrRaceNotActive
	}
	p, ok := room.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if progress < 0 || wpm < 0 {
		return nil, ErrInvalidMetrics
	}
	if p.Finished {
		return p, nil
	}

	total := room.length
	if progress > total {
		progress = total
	}
	if progress > p.Progress {
		p.Progress = progress
	}
	p.WPM = wpm

	if p.Progress >= total {
		p.markFinished(room.clock.Now())
	}
	return p, nil
}

// MarkFinished finishes a player and freezes its final speed and accuracy.
// Later calls for the same player change nothing.
func (room *Room) MarkFinished(playerID string, wpm, accuracy float64) (*Player, error) {
	if room.Status != constants.StatusActive {
		return nil, ErrRaceNotActive
	}
	p, ok := room.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if wpm < 0 || accuracy < 0 {
		return nil, ErrInvalidMetrics
	}
	if p.finalized {
		return p, nil
	}

	p.Progress = room.length
	p.WPM = wpm
	p.Accuracy = accuracy
	p.markFinished(room.clock.Now())
	p.finalized = true
	return p, nil
}

// Finish moves an active room to finished and keeps its ranking. It returns
// false when the room was not active, so a race is only ever concluded once.
func (room *Room) Finish(ranking []models.RankingEntry) bool {
	if room.Status != constants.StatusActive {
		return false
	}
	room.Status = constants.StatusFinished
	room.ranking = ranking
	return true
}

// Ranking is the final result, nil until the race is finished.
func (room *Room) Ranking() []models.RankingEntry {
	return room.ranking
}

// Snapshot is the player list broadcast as players-update.
func (room *Room) Snapshot() models.PlayersUpdate {
	update := models.PlayersUpdate{
		RoomCode: room.Code,
		State:    room.Status,
		Players:  make([]models.PlayerView, 0, len(room.order)),
	}
	if host := room.Host(); host != nil {
		update.HostID = host.ID
	}
	for i, p := range room.Players() {
		update.Players = append(update.Players, p.view(i == 0))
	}
	return update
}
