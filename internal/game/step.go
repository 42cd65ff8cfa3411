package game

import "math/rand"

// Outcome reports what a Step changed, so the owner knows what to announce.
type Outcome struct {
	// Broadcast is set when the state changed in a way clients should see.
	Broadcast bool
	// Started is set on the tick the countdown reached zero.
	Started bool
	// Ended is set on the tick the game entered GameOver.
	Ended bool
	// Winner is the surviving player's id when Ended; empty for no winner.
	Winner string
	// Eaten counts food consumed this tick; Respawned counts replacements placed.
	Eaten, Respawned int
}

// Step advances the state by one tick. Lobby and GameOver ticks are no-ops.
func (s *State) Step(rng *rand.Rand) Outcome {
	switch s.Phase {
	case Countdown:
		return s.stepCountdown()
	case Playing:
		return s.stepPlaying(rng)
	}
	return Outcome{}
}

func (s *State) stepCountdown() Outcome {
	stepped, finished := s.Countdown.Advance()
	if !stepped {
		return Outcome{}
	}
	if finished {
		s.Phase = Playing
		return Outcome{Broadcast: true, Started: true}
	}
	return Outcome{Broadcast: true}
}

func (s *State) stepPlaying(rng *rand.Rand) Outcome {
	ids := s.PlayerIDs()
	out := Outcome{Broadcast: true}

	if s.Settings.PowerUpsEnabled {
		s.SpawnTicks++
		if s.SpawnTicks >= s.Rules.PowerUpSpawnTicks {
			s.SpawnTicks = 0
			s.SpawnPowerUp(rng)
		}
	}

	for _, id := range ids {
		p := s.Players[id]
		if !p.Bot || !p.Snake.Alive {
			continue
		}
		if d, ok := Decide(s, id, rng); ok {
			p.Snake.SetDirection(d)
		}
	}

	for _, id := range ids {
		if p := s.Players[id]; p.Snake.Alive {
			p.Snake.MoveForward()
		}
	}

	s.checkWalls(ids)
	s.checkSelf(ids)
	s.checkCross(ids)
	out.Eaten, out.Respawned = s.consumeFood(ids, rng)
	s.collectPowerUps(ids)
	s.tickEffects(ids)

	if ended, winner := s.checkWinner(); ended {
		out.Ended = true
		out.Winner = winner
	}
	return out
}

func (s *State) checkWalls(ids []string) {
	for _, id := range ids {
		p := s.Players[id]
		if !p.Snake.Alive {
			continue
		}
		head := p.Snake.Head()
		if s.InBounds(head) {
			continue
		}
		if p.Active.Wraps() {
			p.Snake.Body[0] = s.wrap(head)
			continue
		}
		p.Snake.Alive = false
	}
}

func (s *State) wrap(p Point) Point {
	switch {
	case p.X < 0:
		p.X = s.Width - 1
	case p.X >= s.Width:
		p.X = 0
	}
	switch {
	case p.Y < 0:
		p.Y = s.Height - 1
	case p.Y >= s.Height:
		p.Y = 0
	}
	return p
}

func (s *State) checkSelf(ids []string) {
	for _, id := range ids {
		p := s.Players[id]
		if p.Snake.Alive && !p.Active.Protects() && p.Snake.HitsSelf() {
			p.Snake.Alive = false
		}
	}
}

// checkCross resolves snake-on-snake hits from the post-move bodies of every
// snake before any death is applied, so the result does not depend on order.
// A head-on or head-swap meeting kills both unprotected snakes.
func (s *State) checkCross(ids []string) {
	var dead []*Player
	for _, id := range ids {
		p := s.Players[id]
		if !p.Snake.Alive || p.Active.Protects() {
			continue
		}
		head := p.Snake.Head()
		for _, otherID := range ids {
			if otherID == id {
				continue
			}
			if s.Players[otherID].Snake.Contains(head) {
				dead = append(dead, p)
				break
			}
		}
	}
	for _, p := range dead {
		p.Snake.Alive = false
	}
}

func (s *State) consumeFood(ids []string, rng *rand.Rand) (eaten, respawned int) {
	for _, id := range ids {
		p := s.Players[id]
		if !p.Snake.Alive {
			continue
		}
		head := p.Snake.Head()
		for i, f := range s.Food {
			if f == head {
				s.Food = append(s.Food[:i], s.Food[i+1:]...)
				p.Snake.Grow()
				eaten++
				break
			}
		}
	}
	for range eaten {
		if s.SpawnFood(rng) {
			respawned++
		}
	}
	return eaten, respawned
}

func (s *State) collectPowerUps(ids []string) {
	for _, id := range ids {
		p := s.Players[id]
		if !p.Snake.Alive {
			continue
		}
		head := p.Snake.Head()
		for i, pu := range s.PowerUps {
			if pu.Position != head {
				continue
			}
			s.PowerUps = append(s.PowerUps[:i], s.PowerUps[i+1:]...)
			s.apply(p, pu.Type)
			break
		}
	}
}

func (s *State) apply(p *Player, t PowerUpType) {
	if t == Grow {
		for range GrowPowerUpLength {
			p.Snake.Grow()
		}
		return
	}
	p.Active = &ActivePowerUp{Type: t, TicksRemaining: s.Rules.EffectTicks(t)}
}

func (s *State) tickEffects(ids []string) {
	for _, id := range ids {
		p := s.Players[id]
		if p.Active == nil {
			continue
		}
		p.Active.TicksRemaining--
		if p.Active.TicksRemaining <= 0 {
			p.Active = nil
		}
	}
}

// checkWinner ends the game when at most one snake of several survives, or
// when the only player in the room has died. The survivor, if any, wins.
func (s *State) checkWinner() (bool, string) {
	total := len(s.Players)
	alive := 0
	winner := ""
	for _, id := range s.PlayerIDs() {
		if p := s.Players[id]; p.Snake.Alive {
			alive++
			winner = id
		}
	}
	if !(total > 1 && alive <= 1) && !(total == 1 && alive == 0) {
		return false, ""
	}
	s.Phase = GameOver
	s.Winner = winner
	return true, winner
}
