package realtime

// Countdown is a visible counter that steps down by one every StepTicks ticks.
// It holds no game state; the owner composes it and reacts to Advance.
type Countdown struct {
	Value     int
	Ticks     int
	StepTicks int
}

// Start sets the countdown to from and resets the sub-tick counter.
func (c *Countdown) Start(from, stepTicks int) {
	if stepTicks < 1 {
		stepTicks = 1
	}
	c.Value = from
	c.Ticks = 0
	c.StepTicks = stepTicks
}

// Active reports whether the countdown still has steps left.
func (c *Countdown) Active() bool {
	return c.Value > 0
}

// Advance counts one tick. stepped is true when the visible value changed on
// this tick; finished is true when it reached zero on this tick.
func (c *Countdown) Advance() (stepped bool, finished bool) {
	if c.Value <= 0 {
		return false, false
	}
	c.Ticks++
	if c.Ticks < c.StepTicks {
		return false, false
	}
	c.Ticks = 0
	c.Value--
	return true, c.Value == 0
}

// Clear zeroes the countdown.
func (c *Countdown) Clear() {
	c.Value = 0
	c.Ticks = 0
}
