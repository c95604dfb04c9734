// Package debounce suppresses repeat firings of logical input signals.
package debounce

import "time"

// Guard throttles a logical signal id when it fires again within the
// guard interval. Every check refreshes the id's timestamp, so a signal
// repeating faster than the interval stays suppressed until it pauses
// (sliding guard, not a fixed window).
//
// A Guard is not safe for concurrent use; each input source owns one and
// calls it from its own goroutine.
type Guard struct {
	interval time.Duration
	now      func() time.Time
	lastSeen map[string]time.Time
}

// New returns a Guard for the given interval. Zero or negative intervals
// disable throttling.
func New(interval time.Duration) *Guard {
	return NewWithClock(interval, time.Now)
}

// NewWithClock returns a Guard reading time from the provided clock.
func NewWithClock(interval time.Duration, now func() time.Time) *Guard {
	return &Guard{
		interval: interval,
		now:      now,
		lastSeen: make(map[string]time.Time),
	}
}

// ShouldThrottle reports whether a firing of id should be suppressed.
// The first sighting of an id never throttles; later sightings throttle
// when the time since the previous sighting is below the guard interval.
func (g *Guard) ShouldThrottle(id string) bool {
	now := g.now()
	last, seen := g.lastSeen[id]
	g.lastSeen[id] = now
	if !seen || g.interval <= 0 {
		return false
	}
	return now.Sub(last) < g.interval
}

// Reset forgets all signal history.
func (g *Guard) Reset() {
	clear(g.lastSeen)
}
