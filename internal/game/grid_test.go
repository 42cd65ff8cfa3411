package game

import (
	"encoding/json"
	"testing"
)

func TestDirection_Opposite(t *testing.T) {
	for _, d := range Directions {
		if d.Opposite() == d {
			t.Errorf("%v.Opposite() == %v", d, d)
		}
		if d.Opposite().Opposite() != d {
			t.Errorf("%v.Opposite().Opposite() = %v", d, d.Opposite().Opposite())
		}
	}
}

func TestPoint_Step(t *testing.T) {
	p := Point{X: 5, Y: 5}
	tests := []struct {
		d    Direction
		want Point
	}{
		{Up, Point{X: 5, Y: 4}},
		{Down, Point{X: 5, Y: 6}},
		{Left, Point{X: 4, Y: 5}},
		{Right, Point{X: 6, Y: 5}},
	}
	for _, tt := range tests {
		if got := p.Step(tt.d); got != tt.want {
			t.Errorf("Step(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestTurns(t *testing.T) {
	tests := []struct {
		current Direction
		want    []Direction
	}{
		{Up, []Direction{Up, Left, Right}},
		{Down, []Direction{Down, Left, Right}},
		{Left, []Direction{Left, Up, Down}},
		{Right, []Direction{Right, Up, Down}},
	}
	for _, tt := range tests {
		got := Turns(tt.current)
		if len(got) != len(tt.want) {
			t.Fatalf("Turns(%v) = %v, want %v", tt.current, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Turns(%v) = %v, want %v", tt.current, got, tt.want)
				break
			}
		}
	}
}

func TestDirection_JSON(t *testing.T) {
	b, err := json.Marshal(Left)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"Left"` {
		t.Errorf("Marshal(Left) = %s", b)
	}
	var d Direction
	if err := json.Unmarshal([]byte(`"Down"`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d != Down {
		t.Errorf("got %v, want Down", d)
	}
	if err := json.Unmarshal([]byte(`"Sideways"`), &d); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestManhattan(t *testing.T) {
	if got := Manhattan(Point{X: 1, Y: 2}, Point{X: 4, Y: -2}); got != 7 {
		t.Errorf("Manhattan = %d, want 7", got)
	}
}
