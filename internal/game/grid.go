// Package game holds the authoritative snake arena rules: grid geometry, snakes,
// power-ups, bot strategies and the per-tick step of a room's state.
//
// Nothing in this package is safe for concurrent use. A State is owned by exactly
// one room goroutine, which is the only caller allowed to mutate it.
package game

import "fmt"

// Point is a grid cell. (0,0) is the top-left corner; y grows downward.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the neighbouring cell in direction d.
func (p Point) Step(d Direction) Point {
	switch d {
	case Up:
		return Point{X: p.X, Y: p.Y - 1}
	case Down:
		return Point{X: p.X, Y: p.Y + 1}
	case Left:
		return Point{X: p.X - 1, Y: p.Y}
	case Right:
		return Point{X: p.X + 1, Y: p.Y}
	}
	return p
}

// Manhattan returns the taxicab distance between a and b.
func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is a heading on the grid.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every heading in enumeration order.
var Directions = [4]Direction{Up, Down, Left, Right}

var directionNames = [4]string{"Up", "Down", "Left", "Right"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Opposite returns the reverse heading. Opposite(Opposite(d)) == d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Vertical reports whether d is Up or Down.
func (d Direction) Vertical() bool {
	return d == Up || d == Down
}

// ParseDirection resolves a direction name.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if int(d) >= len(directionNames) {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(directionNames[d]), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Turns returns the headings a snake travelling in current may choose, in
// enumeration order, without the reverse heading.
func Turns(current Direction) []Direction {
	order := [4]Direction{Left, Right, Up, Down}
	if current.Vertical() {
		order = [4]Direction{Up, Down, Left, Right}
	}
	out := make([]Direction, 0, 3)
	for _, d := range order {
		if d != current.Opposite() {
			out = append(out, d)
		}
	}
	return out
}
