package manager

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/game"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
	ErrRoomLimit          = errors.New("room limit reached")
)

// CodeGenerator returns a candidate room code.
type CodeGenerator func() string

type Option func(*Registry)

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(rm *Registry) { rm.generate = gen }
}

func WithClock(clock clockwork.Clock) Option {
	return func(rm *Registry) { rm.clock = clock }
}

// WithCapacity limits the number of players per room.
func WithCapacity(n int) Option {
	return func(rm *Registry) {
		if n > 0 {
			rm.capacity = n
		}
	}
}

// WithMaxRooms caps the number of open rooms. Zero means no cap.
func WithMaxRooms(n int) Option {
	return func(rm *Registry) {
		if n >= 0 {
			rm.maxRooms = n
		}
	}
}

func WithCodeLength(n int) Option {
	return func(rm *Registry) {
		if n > 0 {
			rm.codeLength = n
		}
	}
}

// Registry maps room codes to live rooms. Like the rooms it holds it is not
// safe for concurrent use; the gateway loop is its only caller.
type Registry struct {
	rooms      map[string]*game.Room
	capacity   int
	codeLength int
	maxRooms   int
	generate   CodeGenerator
	clock      clockwork.Clock
}

// NewRegistry creates an empty room registry
func NewRegistry(opts ...Option) *Registry {
	rm := &Registry{
		rooms:      make(map[string]*game.Room),
		capacity:   constants.MaximumPlayers,
		codeLength: constants.RoomCodeLength,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(rm)
	}
	if rm.generate == nil {
		length := rm.codeLength
		rm.generate = func() string { return GenerateCode(length) }
	}
	return rm
}

// CreateRoom opens a waiting room with the host as its only player.
func (rm *Registry) CreateRoom(hostID, hostName string) (*game.Room, error) {
	if rm.maxRooms > 0 && len(rm.rooms) >= rm.maxRooms {
		return nil, fmt.Errorf("%w: %d rooms open", ErrRoomLimit, len(rm.rooms))
	}

	code, err := rm.allocateCode()
	if err != nil {
		return nil, err
	}

	room := game.NewRoom(code, rm.capacity, rm.clock)
	if _, err := room.AddPlayer(hostID, hostName); err != nil {
		return nil, fmt.Errorf("add host to room %s: %w", code, err)
	}
	rm.rooms[code] = room

	log.Info().
		Str("room_code", code).
		Str("player_id", hostID).
		Int("rooms", len(rm.rooms)).
		Msg("room created")
	return room, nil
}

// JoinRoom appends a player to the room with the given code.
func (rm *Registry) JoinRoom(code, playerID, playerName string) (*game.Room, error) {
	room, err := rm.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if _, err := room.AddPlayer(playerID, playerName); err != nil {
		return nil, fmt.Errorf("join room %s: %w", room.Code, err)
	}

	log.Info().
		Str("room_code", room.Code).
		Str("player_id", playerID).
		Int("players", room.Len()).
		Msg("player joined room")
	return room, nil
}

// RemovePlayer takes a player out of a room and deletes the room once it is
// empty. It returns the room if it is still alive and whether the player was
// a member.
func (rm *Registry) RemovePlayer(code, playerID string) (*game.Room, bool) {
	room, ok := rm.rooms[NormalizeCode(code)]
	if !ok {
		return nil, false
	}
	if !room.RemovePlayer(playerID) {
		return room, false
	}

	if room.IsEmpty() {
		delete(rm.rooms, room.Code)
		log.Info().
			Str("room_code", room.Code).
			Int("rooms", len(rm.rooms)).
			Msg("room removed")
		return nil, true
	}
	return room, true
}

// GetRoom looks a room up by code, ignoring case and surrounding spaces.
func (rm *Registry) GetRoom(code string) (*game.Room, error) {
	normalized := NormalizeCode(code)
	room, ok := rm.rooms[normalized]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, normalized)
	}
	return room, nil
}

func (rm *Registry) Len() int {
	return len(rm.rooms)
}

// Stats counts rooms and players, grouped by room state.
func (rm *Registry) Stats() (rooms, players int, byState map[string]int) {
	byState = make(map[string]int)
	for _, room := range rm.rooms {
		byState[room.Status]++
		players += room.Len()
	}
	return len(rm.rooms), players, byState
}

func (rm *Registry) allocateCode() (string, error) {
	for attempt := 0; attempt < constants.MaxCodeAttempts; attempt++ {
		code := NormalizeCode(rm.generate())
		if code == "" {
			continue
		}
		if _, taken := rm.rooms[code]; !taken {
			return code, nil
		}
		log.Debug().Str("room_code", code).Msg("room code collision, regenerating")
	}
	return "", ErrCodeSpaceExhausted
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode returns a random uppercase alphanumeric code.
func GenerateCode(length int) string {
	alphabet := constants.RoomCodeAlphabet
	max := big.NewInt(int64(len(alphabet)))

	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(fmt.Sprintf("generate room code: %v", err))
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
