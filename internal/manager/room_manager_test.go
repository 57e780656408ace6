package manager_test

import (
	"fmt"
	"math/rand"
	"regexp"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/game"
	"github.com/NuZard84/go-typerace-socket/internal/manager"
)

// sequence returns a generator replaying codes in order.
func sequence(codes ...string) manager.CodeGenerator {
	i := 0
	return func() string {
		code := codes[i%len(codes)]
		i++
		return code
	}
}

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, manager.GenerateCode(6))
	}
	assert.Len(t, manager.GenerateCode(8), 8)
}

func TestRegistry_CreateRoom(t *testing.T) {
	rm := manager.NewRegistry(
		manager.WithCodeGenerator(sequence("abc123")),
		manager.WithClock(clockwork.NewFakeClock()),
	)

	room, err := rm.CreateRoom("host", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", room.Code)
	assert.Equal(t, constants.StatusWaiting, room.Status)
	require.Equal(t, 1, room.Len())
	assert.Equal(t, "host", room.Host().ID)
	assert.Equal(t, 1, rm.Len())

	got, err := rm.GetRoom(" abc123 ")
	require.NoError(t, err)
	assert.Same(t, room, got)
}

func TestRegistry_CreateRoomRegeneratesOnCollision(t *testing.T) {
	rm := manager.NewRegistry(manager.WithCodeGenerator(sequence("AAAAAA", "AAAAAA", "BBBBBB")))

	first, err := rm.CreateRoom("p1", "one")
	require.NoError(t, err)
	second, err := rm.CreateRoom("p2", "two")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)

	// the first room was not overwritten
	got, err := rm.GetRoom("AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Host().ID)
}

func TestRegistry_CreateRoomCodeSpaceExhausted(t *testing.T) {
	rm := manager.NewRegistry(manager.WithCodeGenerator(sequence("AAAAAA")))
	_, err := rm.CreateRoom("p1", "one")
	require.NoError(t, err)

	_, err = rm.CreateRoom("p2", "two")
	assert.ErrorIs(t, err, manager.ErrCodeSpaceExhausted)
	assert.Equal(t, 1, rm.Len())
}

func TestRegistry_MaxRooms(t *testing.T) {
	rm := manager.NewRegistry(
		manager.WithMaxRooms(2),
		manager.WithCodeGenerator(sequence("AAAAAA", "BBBBBB", "CCCCCC")),
	)

	_, err := rm.CreateRoom("p1", "one")
	require.NoError(t, err)
	_, err = rm.CreateRoom("p2", "two")
	require.NoError(t, err)

	_, err = rm.CreateRoom("p3", "three")
	assert.ErrorIs(t, err, manager.ErrRoomLimit)
	assert.Equal(t, 2, rm.Len())

	// closing a room frees a slot
	_, removed := rm.RemovePlayer("AAAAAA", "p1")
	require.True(t, removed)
	room, err := rm.CreateRoom("p3", "three")
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", room.Code)
}

func TestRegistry_JoinRoom(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, rm *manager.Registry) string
		wantErr error
	}{
		{
			name: "join existing room",
			setup: func(t *testing.T, rm *manager.Registry) string {
				room, err := rm.CreateRoom("host", "Ada")
				require.NoError(t, err)
				return room.Code
			},
		},
		{
			name: "lower case code",
			setup: func(t *testing.T, rm *manager.Registry) string {
				_, err := rm.CreateRoom("host", "Ada")
				require.NoError(t, err)
				return "abc123"
			},
		},
		{
			name: "unknown code",
			setup: func(t *testing.T, rm *manager.Registry) string {
				return "ZZZZZZ"
			},
			wantErr: manager.ErrRoomNotFound,
		},
		{
			name: "room already racing",
			setup: func(t *testing.T, rm *manager.Registry) string {
				room, err := rm.CreateRoom("host", "Ada")
				require.NoError(t, err)
				require.NoError(t, room.StartRace("some text"))
				return room.Code
			},
			wantErr: game.ErrRaceInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := manager.NewRegistry(manager.WithCodeGenerator(sequence("ABC123")))
			code := tt.setup(t, rm)

			room, err := rm.JoinRoom(code, "guest", "Ada")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, room)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, room.Len())
			assert.Equal(t, "host", room.Host().ID)
		})
	}
}

func TestRegistry_RoomFull(t *testing.T) {
	rm := manager.NewRegistry(manager.WithCapacity(2))
	room, err := rm.CreateRoom("a", "a")
	require.NoError(t, err)
	_, err = rm.JoinRoom(room.Code, "b", "b")
	require.NoError(t, err)

	_, err = rm.JoinRoom(room.Code, "c", "c")
	assert.ErrorIs(t, err, game.ErrRoomFull)
}

func TestRegistry_RemovePlayerCollectsEmptyRooms(t *testing.T) {
	rm := manager.NewRegistry()
	room, err := rm.CreateRoom("a", "a")
	require.NoError(t, err)
	_, err = rm.JoinRoom(room.Code, "b", "b")
	require.NoError(t, err)

	survivor, removed := rm.RemovePlayer(room.Code, "a")
	assert.True(t, removed)
	require.NotNil(t, survivor)
	assert.Equal(t, "b", survivor.Host().ID)

	survivor, removed = rm.RemovePlayer(room.Code, "ghost")
	assert.False(t, removed)
	assert.NotNil(t, survivor)

	survivor, removed = rm.RemovePlayer(room.Code, "b")
	assert.True(t, removed)
	assert.Nil(t, survivor)
	assert.Equal(t, 0, rm.Len())

	_, err = rm.JoinRoom(room.Code, "c", "c")
	assert.ErrorIs(t, err, manager.ErrRoomNotFound)

	_, removed = rm.RemovePlayer(room.Code, "b")
	assert.False(t, removed)
}

func TestRegistry_Stats(t *testing.T) {
	rm := manager.NewRegistry()
	r1, err := rm.CreateRoom("a", "a")
	require.NoError(t, err)
	_, err = rm.JoinRoom(r1.Code, "b", "b")
	require.NoError(t, err)
	require.NoError(t, r1.StartRace("text"))
	_, err = rm.CreateRoom("c", "c")
	require.NoError(t, err)

	rooms, players, byState := rm.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 3, players)
	assert.Equal(t, 1, byState[constants.StatusActive])
	assert.Equal(t, 1, byState[constants.StatusWaiting])
}

// Random create/join/leave sequences must never leave duplicate codes or
// empty rooms behind. A tiny code alphabet forces frequent collisions.
func TestRegistry_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	codes := []string{"AAAAAA", "BBBBBB", "CCCCCC", "DDDDDD", "EEEEEE", "FFFFFF"}
	rm := manager.NewRegistry(
		manager.WithCapacity(4),
		manager.WithCodeGenerator(func() string { return codes[rng.Intn(len(codes))] }),
	)

	membership := make(map[string]string) // player -> room code
	next := 0

	for step := 0; step < 2000; step++ {
		switch rng.Intn(3) {
		case 0:
			id := fmt.Sprintf("p%d", next)
			next++
			room, err := rm.CreateRoom(id, id)
			if err == nil {
				membership[id] = room.Code
			} else {
				require.ErrorIs(t, err, manager.ErrCodeSpaceExhausted)
			}
		case 1:
			id := fmt.Sprintf("p%d", next)
			next++
			code := codes[rng.Intn(len(codes))]
			if room, err := rm.JoinRoom(code, id, id); err == nil {
				membership[id] = room.Code
			}
		case 2:
			for id, code := range membership {
				_, removed := rm.RemovePlayer(code, id)
				require.True(t, removed)
				delete(membership, id)
				break
			}
		}

		seen := make(map[string]bool)
		total := 0
		for _, code := range codes {
			room, err := rm.GetRoom(code)
			if err != nil {
				continue
			}
			require.False(t, seen[room.Code])
			seen[room.Code] = true
			require.Equal(t, code, room.Code)
			require.Greater(t, room.Len(), 0, "room %s is empty", code)
			total += room.Len()
		}
		require.Equal(t, len(seen), rm.Len())
		require.Equal(t, len(membership), total)
	}
}
