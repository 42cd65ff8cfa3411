package protocol

import (
	"slices"

	"snakebattle/internal/game"
)

// GameState is an immutable copy of a room's state as clients see it.
type GameState struct {
	Phase          game.Phase             `json:"phase"`
	Players        map[string]game.Player `json:"players"`
	Food           []game.Point           `json:"food"`
	PowerUps       []game.PowerUp         `json:"power_ups"`
	GridWidth      int                    `json:"grid_width"`
	GridHeight     int                    `json:"grid_height"`
	Winner         *string                `json:"winner"`
	Countdown      int                    `json:"countdown"`
	CountdownTicks int                    `json:"countdown_ticks"`
}

// NewGameState deep-copies s. The result shares no memory with s, so it can
// be handed to any number of sessions while the room keeps mutating s.
func NewGameState(s *game.State) GameState {
	gs := GameState{
		Phase:          s.Phase,
		Players:        make(map[string]game.Player, len(s.Players)),
		Food:           slices.Clone(s.Food),
		PowerUps:       slices.Clone(s.PowerUps),
		GridWidth:      s.Width,
		GridHeight:     s.Height,
		Countdown:      s.Countdown.Value,
		CountdownTicks: s.Countdown.Ticks,
	}
	if gs.Food == nil {
		gs.Food = []game.Point{}
	}
	if gs.PowerUps == nil {
		gs.PowerUps = []game.PowerUp{}
	}
	if s.Winner != "" {
		w := s.Winner
		gs.Winner = &w
	}
	for id, p := range s.Players {
		cp := *p
		cp.AccessToken = ""
		cp.Snake.Body = slices.Clone(p.Snake.Body)
		if p.Active != nil {
			a := *p.Active
			cp.Active = &a
		}
		if p.Difficulty != nil {
			d := *p.Difficulty
			cp.Difficulty = &d
		}
		gs.Players[id] = cp
	}
	return gs
}
