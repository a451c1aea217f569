package room

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/chess-arena-go/internal/rules"
)

func TestClockExpiresActiveSide(t *testing.T) {
	expired := make(chan rules.Side, 1)
	c := NewClock(30*time.Millisecond, func(side rules.Side) { expired <- side })
	c.Start(rules.White)

	select {
	case side := <-expired:
		if side != rules.White {
			t.Fatalf("expired side %s, want white", side)
		}
	case <-time.After(time.Second):
		t.Fatalf("clock never expired")
	}
	if rem := c.Remaining(rules.White); rem != 0 {
		t.Fatalf("remaining after expiry = %v, want 0", rem)
	}
}

func TestClockSwitchChargesMover(t *testing.T) {
	c := NewClock(time.Minute, func(rules.Side) {})
	defer c.Stop()
	c.Start(rules.White)
	time.Sleep(20 * time.Millisecond)
	c.Switch(rules.Black)

	if rem := c.Remaining(rules.White); rem >= time.Minute {
		t.Fatalf("white was not charged: %v", rem)
	}
	// Black's time is intact modulo the countdown just started.
	if rem := c.Remaining(rules.Black); rem < time.Minute-100*time.Millisecond {
		t.Fatalf("black charged unexpectedly: %v", rem)
	}
}

func TestClockStopSuppressesExpiry(t *testing.T) {
	var fired atomic.Bool
	c := NewClock(30*time.Millisecond, func(rules.Side) { fired.Store(true) })
	c.Start(rules.White)
	c.Stop()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("expiry fired after Stop")
	}
}

func TestClockSwitchDisarmsPreviousTimer(t *testing.T) {
	var whiteExpiries atomic.Int32
	c := NewClock(30*time.Millisecond, func(side rules.Side) {
		if side == rules.White {
			whiteExpiries.Add(1)
		}
	})
	defer c.Stop()
	c.Start(rules.White)
	c.Switch(rules.Black)

	time.Sleep(80 * time.Millisecond)
	if n := whiteExpiries.Load(); n != 0 {
		t.Fatalf("white expired %d times after switching away", n)
	}
}
