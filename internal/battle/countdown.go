package battle

import "time"

// Countdown is a value-with-deadline. It never owns a goroutine; callers
// compare it against the session clock on every tick.
type Countdown struct {
	deadline  time.Time
	remaining time.Duration
	running   bool
}

// Start arms the countdown for d from now.
func (c *Countdown) Start(now time.Time, d time.Duration) {
	c.deadline = now.Add(d)
	c.remaining = d
	c.running = true
}

// Set stores d without running the countdown.
func (c *Countdown) Set(d time.Duration) {
	c.remaining = d
	c.running = false
}

// Pause freezes the remaining time.
func (c *Countdown) Pause(now time.Time) {
	if !c.running {
		return
	}
	c.remaining = c.Remaining(now)
	c.running = false
}

// Resume continues from the frozen remaining time.
func (c *Countdown) Resume(now time.Time) {
	if c.running {
		return
	}
	c.deadline = now.Add(c.remaining)
	c.running = true
}

// Running reports whether the countdown is being fed by the clock.
func (c *Countdown) Running() bool { return c.running }

// Remaining returns the time left, never negative.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	if !c.running {
		return c.remaining
	}
	left := c.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether a running countdown has reached zero.
func (c *Countdown) Expired(now time.Time) bool {
	return c.running && !now.Before(c.deadline)
}

// Deadline returns when a running countdown hits zero.
func (c *Countdown) Deadline() time.Time { return c.deadline }
