package game

import (
	"time"

	"github.com/NuZard84/go-typerace-socket/internal/models"
)

// Player is one participant of a room and its live race metrics
type Player struct {
	ID         string
	Name       string
	Progress   int
	WPM        float64
	Accuracy   float64
	Finished   bool
	JoinedAt   time.Time
	FinishedAt *time.Time

	// set once final wpm/accuracy have been frozen by a finish message
	finalized bool
}

func newPlayer(id, name string, joinedAt time.Time) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		JoinedAt: joinedAt,
	}
}

func (p *Player) markFinished(at time.Time) {
	if p.Finished {
		return
	}
	p.Finished = true
	p.FinishedAt = &at
}

func (p *Player) view(isHost bool) models.PlayerView {
	return models.PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Progress: p.Progress,
		WPM:      p.WPM,
		Accuracy: p.Accuracy,
		Finished: p.Finished,
		IsHost:   isHost,
	}
}
