package game

// InitialLength is the number of segments every snake spawns with.
const InitialLength = 3

// GrowScore is added to a snake's score on every Grow.
const GrowScore = 10

// Snake is an ordered body, head first.
type Snake struct {
	Body    []Point   `json:"body"`
	Heading Direction `json:"direction"`
	Pending Direction `json:"next_direction"`
	Alive   bool      `json:"alive"`
	Score   int       `json:"score"`
	Color   string    `json:"color"`
}

// NewSnake builds a snake whose head is at start and whose body trails behind
// it, opposite to dir. The caller guarantees every cell is inside the grid.
func NewSnake(start Point, dir Direction, color string) Snake {
	body := make([]Point, 0, InitialLength)
	body = append(body, start)
	back := dir.Opposite()
	cell := start
	for i := 1; i < InitialLength; i++ {
		cell = cell.Step(back)
		body = append(body, cell)
	}
	return Snake{
		Body:    body,
		Heading: dir,
		Pending: dir,
		Alive:   true,
		Color:   color,
	}
}

// Head returns the first body cell.
func (s *Snake) Head() Point {
	return s.Body[0]
}

// Len returns the body length.
func (s *Snake) Len() int {
	return len(s.Body)
}

// SetDirection queues d for the next MoveForward. A reversal of the current
// heading is ignored.
func (s *Snake) SetDirection(d Direction) {
	if d == s.Heading.Opposite() {
		return
	}
	s.Pending = d
}

// MoveForward commits the pending heading and shifts the body one cell.
func (s *Snake) MoveForward() {
	s.Heading = s.Pending
	head := s.Head().Step(s.Heading)
	copy(s.Body[1:], s.Body[:len(s.Body)-1])
	s.Body[0] = head
}

// Grow duplicates the tail cell so the next MoveForward leaves the snake one
// segment longer, and adds GrowScore.
func (s *Snake) Grow() {
	if len(s.Body) > 0 {
		s.Body = append(s.Body, s.Body[len(s.Body)-1])
	}
	s.Score += GrowScore
}

// Contains reports whether p is any body cell.
func (s *Snake) Contains(p Point) bool {
	for _, c := range s.Body {
		if c == p {
			return true
		}
	}
	return false
}

// HitsSelf reports whether the head overlaps any other segment.
func (s *Snake) HitsSelf() bool {
	head := s.Head()
	for _, c := range s.Body[1:] {
		if c == head {
			return true
		}
	}
	return false
}
