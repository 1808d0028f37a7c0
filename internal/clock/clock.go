package clock

import (
	"fmt"
	"math"
	"time"

	"psychsession/pkg"
)

// Clock tracks the wall-clock budget of a single session.  Before Start is
// called every query reports zero and the clock is inactive.  Calling Start
// again overwrites the previous start and deadline, i.e. it restarts the
// budget from now; the orchestrator guards against that happening within one
// session lifecycle.
type Clock struct {
	duration time.Duration
	start    time.Time
	deadline time.Time
	now      func() time.Time
}

// New creates a clock with the given session duration in minutes.
func New(durationMinutes int) *Clock {
	return &Clock{
		duration: time.Duration(durationMinutes) * time.Minute,
		now:      time.Now,
	}
}

// Start records the session start instant and derives the deadline.
func (c *Clock) Start() {
	c.start = c.now()
	c.deadline = c.start.Add(c.duration)
}

// Started reports whether Start has been called.
func (c *Clock) Started() bool { return !c.start.IsZero() }

// TimeLeft returns the remaining session time as whole minutes and leftover
// seconds.  It is (0, 0) before Start and never goes negative.
func (c *Clock) TimeLeft() (minutes, seconds int) {
	if !c.Started() {
		return 0, 0
	}
	left := c.deadline.Sub(c.now())
	if left < 0 {
		left = 0
	}
	return split(left)
}

// TimeLeftString formats the remaining time the way the enhanced prompt
// expects it, e.g. "25 minutes and 30 seconds".
func (c *Clock) TimeLeftString() string {
	m, s := c.TimeLeft()
	return fmt.Sprintf("%d minutes and %d seconds", m, s)
}

// IsActive reports whether the session deadline has not yet passed.  It is
// false before Start.
func (c *Clock) IsActive() bool {
	if !c.Started() {
		return false
	}
	return c.now().Before(c.deadline)
}

// Elapsed returns the time since Start as whole minutes and leftover
// seconds, or (0, 0) before Start.
func (c *Clock) Elapsed() (minutes, seconds int) {
	if !c.Started() {
		return 0, 0
	}
	return split(c.now().Sub(c.start))
}

// Metrics snapshots the clock for reporting.  CompletionPercentage is
// elapsed over total duration, rounded to two decimals and not clamped, so
// an overrun session reports more than 100.
func (c *Clock) Metrics() pkg.ClockMetrics {
	em, es := c.Elapsed()
	rm, rs := c.TimeLeft()
	totalSeconds := int(c.duration / time.Second)
	elapsedSeconds := em*60 + es
	pct := 0.0
	if totalSeconds > 0 {
		pct = math.Round(float64(elapsedSeconds)/float64(totalSeconds)*100*100) / 100
	}
	return pkg.ClockMetrics{
		SessionActive:        c.IsActive(),
		ElapsedMinutes:       em,
		ElapsedSeconds:       es,
		RemainingMinutes:     rm,
		RemainingSeconds:     rs,
		TotalDurationMinutes: totalSeconds / 60,
		CompletionPercentage: pct,
	}
}

// split decomposes a duration into whole minutes and leftover whole seconds.
func split(d time.Duration) (minutes, seconds int) {
	total := int(d / time.Second)
	return total / 60, total % 60
}
