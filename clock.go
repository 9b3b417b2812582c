package alohareader

import (
	"time"
)

// clock paces delivery. In wall mode presentation time advances with real
// time scaled by the playback rate, starting from the range start. In user
// mode it only advances through DeliverTime.
type clock struct {
	user bool

	// Last value passed to DeliverTime, and whether its OnTime is owed.
	userTime time.Duration
	pending  bool

	zero time.Time
	base time.Duration
	rate float64

	now func() time.Time
}

func newClock() *clock {
	return &clock{rate: 1, now: time.Now}
}

// start anchors presentation time base at the current instant.
func (c *clock) start(base time.Duration, rate float64) {
	c.zero = c.now()
	c.base = base
	c.rate = rate
}

// elapsed is the current presentation time.
func (c *clock) elapsed() time.Duration {
	return c.base + time.Duration(float64(c.now().Sub(c.zero))*c.rate)
}

// until returns how long to wait, in real time, before presenting pts.
func (c *clock) until(pts time.Duration) time.Duration {
	return time.Duration(float64(pts-c.elapsed()) / c.rate)
}

// deliver records a user-provided time. A newer time replaces one whose
// notification is still owed.
func (c *clock) deliver(t time.Duration) {
	c.userTime = t
	c.pending = true
}

// reached reports whether a user clock has advanced to pts.
func (c *clock) reached(pts time.Duration) bool {
	return pts <= c.userTime
}
