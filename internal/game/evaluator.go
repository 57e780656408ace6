package game

import (
	"fmt"
	"sort"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/models"
)

// Rule names the condition that ends a race.
type Rule string

const (
	// FirstToFinish ends the race as soon as any player completes the text
	// and ranks everybody.
	FirstToFinish Rule = constants.FinishRuleFirstToFinish
	// AllFinish waits until every member has finished.
	AllFinish Rule = constants.FinishRuleAllFinish
)

func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case FirstToFinish, AllFinish:
		return Rule(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

// Evaluator decides whether a race is over. It never mutates the room.
type Evaluator struct {
	rule Rule
}

func NewEvaluator(rule Rule) *Evaluator {
	return &Evaluator{rule: rule}
}

func (e *Evaluator) Rule() Rule {
	return e.rule
}

// Evaluate reports whether the race in room is complete and, if so, the final
// ranking. Rooms that are not active are never complete.
func (e *Evaluator) Evaluate(room *Room) ([]models.RankingEntry, bool) {
	if room.Status != constants.StatusActive || room.IsEmpty() {
		return nil, false
	}

	players := room.Players()
	switch e.rule {
	case AllFinish:
		for _, p := range players {
			if !p.Finished {
				return nil, false
			}
		}
		return Rank(room, finishers(players)), true
	default:
		for _, p := range players {
			if p.Finished {
				return Rank(room, players), true
			}
		}
		return nil, false
	}
}

// Rank orders players by wpm, fastest first. Equal speeds keep join order.
func Rank(room *Room, players []*Player) []models.RankingEntry {
	sorted := make([]*Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WPM > sorted[j].WPM
	})

	out := make([]models.RankingEntry, 0, len(sorted))
	for i, p := range sorted {
		entry := models.RankingEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Name:     p.Name,
			WPM:      p.WPM,
			Accuracy: p.Accuracy,
			Progress: p.Progress,
			Finished: p.Finished,
		}
		if p.FinishedAt != nil && room.StartedAt != nil {
			entry.ElapsedMS = p.FinishedAt.Sub(*room.StartedAt).Milliseconds()
		}
		out = append(out, entry)
	}
	return out
}

func finishers(players []*Player) []*Player {
	out := make([]*Player, 0, len(players))
	for _, p := range players {
		if p.Finished {
			out = append(out, p)
		}
	}
	return out
}
