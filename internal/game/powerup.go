package game

import "fmt"

// PowerUpType is the kind of an on-grid power-up.
type PowerUpType uint8

const (
	SpeedBoost PowerUpType = iota
	Shield
	Grow
	Ghost
)

// PowerUpTypes lists every kind in enumeration order.
var PowerUpTypes = [4]PowerUpType{SpeedBoost, Shield, Grow, Ghost}

var powerUpNames = [4]string{"SpeedBoost", "Shield", "Grow", "Ghost"}

func (t PowerUpType) String() string {
	if int(t) < len(powerUpNames) {
		return powerUpNames[t]
	}
	return fmt.Sprintf("PowerUpType(%d)", uint8(t))
}

func (t PowerUpType) MarshalText() ([]byte, error) {
	if int(t) >= len(powerUpNames) {
		return nil, fmt.Errorf("invalid power-up type %d", uint8(t))
	}
	return []byte(powerUpNames[t]), nil
}

func (t *PowerUpType) UnmarshalText(b []byte) error {
	for i, name := range powerUpNames {
		if name == string(b) {
			*t = PowerUpType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown power-up type %q", b)
}

// PowerUp is a collectable item on the grid.
type PowerUp struct {
	ID       string      `json:"id"`
	Position Point       `json:"position"`
	Type     PowerUpType `json:"power_type"`
}

// ActivePowerUp is a timed effect held by a player.
type ActivePowerUp struct {
	Type           PowerUpType `json:"power_type"`
	TicksRemaining int         `json:"ticks_remaining"`
}

// Protects reports whether the effect saves its holder from body collisions.
func (a *ActivePowerUp) Protects() bool {
	return a != nil && (a.Type == Shield || a.Type == Ghost)
}

// Wraps reports whether the effect lets its holder pass through walls.
func (a *ActivePowerUp) Wraps() bool {
	return a != nil && a.Type == Ghost
}
