// Package clock tracks simulation time that excludes paused intervals.
package clock

import (
	"errors"
	"time"
)

// ErrNotStarted is returned when elapsed time is requested before Reset.
var ErrNotStarted = errors.New("clock: no session started")

// PauseClock measures wall-clock time since a session start minus every
// completed pause. It is not safe for concurrent use.
type PauseClock struct {
	start       time.Time
	started     bool
	pauseStart  time.Time
	paused      bool
	pausedTotal time.Duration
}

// Reset starts a new session at now. The cumulative paused duration drops
// to zero; if the clock is paused the pause is re-anchored at now.
func (c *PauseClock) Reset(now time.Time) {
	c.start = now
	c.started = true
	c.pausedTotal = 0
	if c.paused {
		c.pauseStart = now
	}
}

// Toggle flips between running and paused and returns the new state.
// Resuming adds the finished pause interval to the cumulative total once.
func (c *PauseClock) Toggle(now time.Time) bool {
	if c.paused {
		c.pausedTotal += now.Sub(c.pauseStart)
		c.pauseStart = time.Time{}
		c.paused = false
		return false
	}
	c.pauseStart = now
	c.paused = true
	return true
}

// Paused reports whether the clock is paused.
func (c *PauseClock) Paused() bool { return c.paused }

// Started reports whether Reset was called.
func (c *PauseClock) Started() bool { return c.started }

// PausedTotal returns the cumulative duration of completed pauses.
func (c *PauseClock) PausedTotal() time.Duration { return c.pausedTotal }

// Elapsed returns the simulation time at now. While paused, the running
// pause is excluded, so the value stays frozen at the pause start.
func (c *PauseClock) Elapsed(now time.Time) (time.Duration, error) {
	if !c.started {
		return 0, ErrNotStarted
	}
	if c.paused {
		now = c.pauseStart
	}
	return now.Sub(c.start) - c.pausedTotal, nil
}
