package game_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuZard84/go-typerace-socket/internal/game"
)

func TestParseRule(t *testing.T) {
	rule, err := game.ParseRule("first-to-finish")
	require.NoError(t, err)
	assert.Equal(t, game.FirstToFinish, rule)

	rule, err = game.ParseRule("all-finish")
	require.NoError(t, err)
	assert.Equal(t, game.AllFinish, rule)

	_, err = game.ParseRule("fastest")
	assert.ErrorIs(t, err, game.ErrUnknownRule)
}

func TestRank_TieBrokenByJoinOrder(t *testing.T) {
	room, _ := newRoomWith(t, "p1", "p2", "p3", "p4")
	require.NoError(t, room.StartRace(passage))

	for id, wpm := range map[string]float64{"p1": 40, "p2": 55, "p3": 55, "p4": 20} {
		_, err := room.RecordProgress(id, 1, wpm)
		require.NoError(t, err)
	}

	ranking := game.Rank(room, room.Players())
	require.Len(t, ranking, 4)

	var ids []string
	for i, entry := range ranking {
		ids = append(ids, entry.PlayerID)
		assert.Equal(t, i+1, entry.Rank)
	}
	assert.Equal(t, []string{"p2", "p3", "p1", "p4"}, ids)
}

func TestEvaluator_FirstToFinish(t *testing.T) {
	room, _ := newRoomWith(t, "a", "b", "c")
	eval := game.NewEvaluator(game.FirstToFinish)

	_, done := eval.Evaluate(room)
	assert.False(t, done, "waiting room is never complete")

	require.NoError(t, room.StartRace(passage))
	_, err := room.RecordProgress("a", 10, 70)
	require.NoError(t, err)
	_, err = room.RecordProgress("b", 4, 30)
	require.NoError(t, err)

	_, done = eval.Evaluate(room)
	assert.False(t, done)

	_, err = room.RecordProgress("b", len(passage), 45)
	require.NoError(t, err)

	ranking, done := eval.Evaluate(room)
	require.True(t, done)
	require.Len(t, ranking, 3, "every player is ranked")
	assert.Equal(t, "a", ranking[0].PlayerID)
	assert.Equal(t, "b", ranking[1].PlayerID)
	assert.True(t, ranking[1].Finished)
	assert.Equal(t, "c", ranking[2].PlayerID)
	assert.False(t, ranking[2].Finished)

	require.True(t, room.Finish(ranking))
	_, done = eval.Evaluate(room)
	assert.False(t, done, "finished room is not evaluated again")
}

func TestEvaluator_AllFinish(t *testing.T) {
	room, clock := newRoomWith(t, "a", "b")
	eval := game.NewEvaluator(game.AllFinish)
	require.NoError(t, room.StartRace(passage))

	clock.Advance(20 * time.Second)
	_, err := room.MarkFinished("a", 45, 95)
	require.NoError(t, err)

	_, done := eval.Evaluate(room)
	assert.False(t, done)

	clock.Advance(5 * time.Second)
	_, err = room.MarkFinished("b", 60, 99)
	require.NoError(t, err)

	ranking, done := eval.Evaluate(room)
	require.True(t, done)
	require.Len(t, ranking, 2)
	assert.Equal(t, "b", ranking[0].PlayerID)
	assert.Equal(t, int64(25000), ranking[0].ElapsedMS)
	assert.Equal(t, "a", ranking[1].PlayerID)
	assert.Equal(t, int64(20000), ranking[1].ElapsedMS)
}

func TestEvaluator_AllFinishAfterDeparture(t *testing.T) {
	room, _ := newRoomWith(t, "a", "b")
	eval := game.NewEvaluator(game.AllFinish)
	require.NoError(t, room.StartRace(passage))

	_, err := room.MarkFinished("a", 45, 95)
	require.NoError(t, err)
	_, done := eval.Evaluate(room)
	require.False(t, done)

	room.RemovePlayer("b")
	ranking, done := eval.Evaluate(room)
	require.True(t, done)
	require.Len(t, ranking, 1)
	assert.Equal(t, "a", ranking[0].PlayerID)
}
