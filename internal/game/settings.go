package game

import (
	"fmt"
	"time"

	"snakebattle/pkg/realtime"
)

const (
	MaxPlayers        = 4
	CountdownFrom     = 3
	InitialFood       = 3
	FoodAttempts      = 100
	PowerUpAttempts   = 50
	GrowPowerUpLength = 5

	PowerUpSpawnEvery = 10 * time.Second
	SpeedBoostFor     = 5 * time.Second
	ShieldFor         = 3 * time.Second
	GhostFor          = 2 * time.Second
)

// Colors are assigned by spawn slot.
var Colors = [MaxPlayers]string{"#a855f7", "#22d3ee", "#f472b6", "#4ade80"}

// Speed selects the room's tick interval.
type Speed uint8

const (
	Normal Speed = iota
	Slow
	Fast
)

var speedNames = map[Speed]string{Slow: "Slow", Normal: "Normal", Fast: "Fast"}

// Interval is the wall-clock time between ticks.
func (s Speed) Interval() time.Duration {
	switch s {
	case Slow:
		return 200 * time.Millisecond
	case Fast:
		return 100 * time.Millisecond
	default:
		return 150 * time.Millisecond
	}
}

func (s Speed) String() string { return speedNames[s] }

func (s Speed) MarshalText() ([]byte, error) {
	name, ok := speedNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid speed %d", uint8(s))
	}
	return []byte(name), nil
}

func (s *Speed) UnmarshalText(b []byte) error {
	for v, name := range speedNames {
		if name == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown speed %q", b)
}

// MapSize selects the grid dimensions.
type MapSize uint8

const (
	Medium MapSize = iota
	Small
	Large
)

var mapSizeNames = map[MapSize]string{Small: "Small", Medium: "Medium", Large: "Large"}

// Dimensions returns width and height in cells.
func (m MapSize) Dimensions() (int, int) {
	switch m {
	case Small:
		return 40, 30
	case Large:
		return 60, 40
	default:
		return 50, 35
	}
}

func (m MapSize) String() string { return mapSizeNames[m] }

func (m MapSize) MarshalText() ([]byte, error) {
	name, ok := mapSizeNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid map size %d", uint8(m))
	}
	return []byte(name), nil
}

func (m *MapSize) UnmarshalText(b []byte) error {
	for v, name := range mapSizeNames {
		if name == string(b) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown map size %q", b)
}

// Settings are chosen when a room is created.
type Settings struct {
	MaxPlayers      int     `json:"max_players"`
	Speed           Speed   `json:"speed"`
	PowerUpsEnabled bool    `json:"power_ups_enabled"`
	Rounds          int     `json:"rounds"`
	MapSize         MapSize `json:"map_size"`
}

// DefaultSettings returns the settings used by quick-match and solo rooms.
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:      MaxPlayers,
		Speed:           Normal,
		PowerUpsEnabled: true,
		Rounds:          1,
		MapSize:         Medium,
	}
}

// Normalize clamps out-of-range values.
func (s Settings) Normalize() Settings {
	if s.MaxPlayers < 1 || s.MaxPlayers > MaxPlayers {
		s.MaxPlayers = MaxPlayers
	}
	if s.Rounds < 1 {
		s.Rounds = 1
	}
	return s
}

// Rules are the tick-unit constants derived from a room's tick interval.
type Rules struct {
	TickInterval      time.Duration
	TicksPerSecond    int
	PowerUpSpawnTicks int
	SpeedBoostTicks   int
	ShieldTicks       int
	GhostTicks        int
}

// RulesFor derives the tick-unit constants for the given settings.
func RulesFor(s Settings) Rules {
	interval := s.Speed.Interval()
	return Rules{
		TickInterval:      interval,
		TicksPerSecond:    max(realtime.Ticks(time.Second, interval), 1),
		PowerUpSpawnTicks: max(realtime.Ticks(PowerUpSpawnEvery, interval), 1),
		SpeedBoostTicks:   realtime.Ticks(SpeedBoostFor, interval),
		ShieldTicks:       realtime.Ticks(ShieldFor, interval),
		GhostTicks:        realtime.Ticks(GhostFor, interval),
	}
}

// EffectTicks returns how long a timed power-up lasts. Grow is instant.
func (r Rules) EffectTicks(t PowerUpType) int {
	switch t {
	case SpeedBoost:
		return r.SpeedBoostTicks
	case Shield:
		return r.ShieldTicks
	case Ghost:
		return r.GhostTicks
	}
	return 0
}
