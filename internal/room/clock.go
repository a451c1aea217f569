package room

import (
	"sync"
	"time"

	"github.com/kapu/chess-arena-go/internal/rules"
)

// Clock is a per-room countdown with one active side at a time. Switching
// sides charges the elapsed time to the side that just moved and re-arms
// the timer for the other side. Stop must be called when the room is
// removed so the expiry callback cannot fire against a dead room.
type Clock struct {
	mu        sync.Mutex
	remaining map[rules.Side]time.Duration
	active    rules.Side
	running   bool
	startedAt time.Time
	timer     *time.Timer
	onExpire  func(side rules.Side)
}

func NewClock(perSide time.Duration, onExpire func(side rules.Side)) *Clock {
	return &Clock{
		remaining: map[rules.Side]time.Duration{
			rules.White: perSide,
			rules.Black: perSide,
		},
		onExpire: onExpire,
	}
}

// Start activates the countdown for side. Calling Start on a running clock
// is equivalent to Switch.
func (c *Clock) Start(side rules.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.armLocked(side)
}

// Switch charges the elapsed time to the currently active side, then arms
// the timer for the given side.
func (c *Clock) Switch(side rules.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		elapsed := time.Since(c.startedAt)
		rem := c.remaining[c.active] - elapsed
		if rem < 0 {
			rem = 0
		}
		c.remaining[c.active] = rem
	}
	c.stopTimerLocked()
	c.armLocked(side)
}

// Stop cancels any pending expiry. Safe to call repeatedly.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.running = false
}

// Remaining reports the time left for side, accounting for an in-flight
// countdown.
func (c *Clock) Remaining(side rules.Side) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	rem := c.remaining[side]
	if c.running && c.active == side {
		rem -= time.Since(c.startedAt)
		if rem < 0 {
			rem = 0
		}
	}
	return rem
}

func (c *Clock) armLocked(side rules.Side) {
	c.active = side
	c.running = true
	c.startedAt = time.Now()
	rem := c.remaining[side]
	c.timer = time.AfterFunc(rem, func() {
		c.mu.Lock()
		if !c.running || c.active != side {
			c.mu.Unlock()
			return
		}
		c.remaining[side] = 0
		c.running = false
		fn := c.onExpire
		c.mu.Unlock()
		if fn != nil {
			fn(side)
		}
	})
}

func (c *Clock) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
