package game

import "math/rand"

const (
	easySeekChance = 0.3
	reachDepth     = 10
	reachWeight    = 0.1
	powerUpRadius  = 5
	powerUpBonus   = 2.0
	disqualified   = -1000.0
)

// Decide picks the heading a bot wants for the next move. It only reads s.
// The second result is false when id is not a live bot.
func Decide(s *State, id string, rng *rand.Rand) (Direction, bool) {
	p, ok := s.Players[id]
	if !ok || !p.Bot || p.Difficulty == nil || !p.Snake.Alive {
		return 0, false
	}
	head := p.Snake.Head()
	current := p.Snake.Heading
	switch *p.Difficulty {
	case BotEasy:
		return decideEasy(s, head, current, rng), true
	case BotMedium:
		return decideMedium(s, head, current), true
	default:
		return decideHard(s, head, current), true
	}
}

func decideEasy(s *State, head Point, current Direction, rng *rand.Rand) Direction {
	if rng.Float64() < easySeekChance && len(s.Food) > 0 {
		return toward(head, s.Food[0])
	}
	turns := Turns(current)
	return turns[rng.Intn(len(turns))]
}

func decideMedium(s *State, head Point, current Direction) Direction {
	if len(s.Food) == 0 {
		return current
	}
	if d := toward(head, s.Food[0]); s.safe(head.Step(d)) {
		return d
	}
	for _, d := range Turns(current) {
		if s.safe(head.Step(d)) {
			return d
		}
	}
	return current
}

func decideHard(s *State, head Point, current Direction) Direction {
	if len(s.Food) == 0 {
		return current
	}
	target := s.Food[0]
	best, bestScore := current, disqualified
	for _, d := range Turns(current) {
		if score := s.score(head.Step(d), target); score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func (s *State) score(next, target Point) float64 {
	if !s.safe(next) {
		return disqualified
	}
	score := -float64(Manhattan(next, target))
	score += reachWeight * float64(s.reachable(next, reachDepth))
	for _, pu := range s.PowerUps {
		if Manhattan(pu.Position, next) < powerUpRadius {
			score += powerUpBonus
		}
	}
	return score
}

// toward returns the heading that closes the larger axis gap first. Ties go
// to the vertical axis.
func toward(from, to Point) Direction {
	dx, dy := to.X-from.X, to.Y-from.Y
	if abs(dx) > abs(dy) {
		if dx > 0 {
			return Right
		}
		return Left
	}
	if dy > 0 {
		return Down
	}
	return Up
}

// safe reports whether a bot may step onto p: an interior cell that no snake
// body covers. Bots treat the border ring as wall.
func (s *State) safe(p Point) bool {
	if p.X <= 0 || p.X >= s.Width-1 || p.Y <= 0 || p.Y >= s.Height-1 {
		return false
	}
	return !s.Occupied(p)
}

// reachable counts safe cells found by a breadth-first fill from start,
// stopping once limit cells have been counted.
func (s *State) reachable(start Point, limit int) int {
	seen := map[Point]bool{start: true}
	queue := []Point{start}
	count := 0
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		count++
		if count >= limit {
			break
		}
		for _, d := range Directions {
			next := pos.Step(d)
			if seen[next] || !s.safe(next) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return count
}
