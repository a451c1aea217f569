package match

import (
	"errors"
	"sync"
	"testing"

	"github.com/kapu/chess-arena-go/internal/room"
	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/pkg/wire"
)

type fakeConn struct {
	id   string
	mu   sync.Mutex
	sent []wire.Envelope
	dead bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

func (c *fakeConn) Send(env wire.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) kill() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}

type fixedRandom struct{ coin bool }

func (f fixedRandom) RoomID() string      { return "room_fixed" }
func (f fixedRandom) MatchRoomID() string { return "match_fixed" }
func (f fixedRandom) CoinFlip() bool      { return f.coin }

func newTestQueue(t *testing.T) (*Queue, *room.Registry) {
	t.Helper()
	reg := room.NewRegistry(room.SystemRandom{}, 0)
	q := NewQueue(reg, rules.NewChessOracle(), fixedRandom{}, 10)
	return q, reg
}

func TestEnqueueSingleWaits(t *testing.T) {
	q, reg := newTestQueue(t)
	p, err := q.Enqueue(newFakeConn("a"), "alice")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if p != nil {
		t.Fatalf("single player should not pair")
	}
	if q.Len() != 1 || reg.Len() != 0 {
		t.Fatalf("queue=%d rooms=%d, want 1/0", q.Len(), reg.Len())
	}
}

func TestFIFOPairing(t *testing.T) {
	q, reg := newTestQueue(t)
	a, b, c, d := newFakeConn("a"), newFakeConn("b"), newFakeConn("c"), newFakeConn("d")

	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	p1, err := q.Enqueue(b, "bob")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if p1 == nil {
		t.Fatalf("a+b should pair")
	}
	got := map[string]bool{p1.White.Username: true, p1.Black.Username: true}
	if !got["alice"] || !got["bob"] {
		t.Fatalf("first pairing is not (alice,bob): %+v", got)
	}

	if _, err := q.Enqueue(c, "carol"); err != nil {
		t.Fatalf("enqueue c: %v", err)
	}
	p2, err := q.Enqueue(d, "dave")
	if err != nil {
		t.Fatalf("enqueue d: %v", err)
	}
	if p2 == nil {
		t.Fatalf("c+d should pair")
	}
	got = map[string]bool{p2.White.Username: true, p2.Black.Username: true}
	if !got["carol"] || !got["dave"] {
		t.Fatalf("second pairing is not (carol,dave): %+v", got)
	}

	if reg.Len() != 2 || q.Len() != 0 {
		t.Fatalf("rooms=%d queue=%d, want 2/0", reg.Len(), q.Len())
	}
	if p2.Room.Status() != room.StatusReady {
		t.Fatalf("matched room status %s, want ready", p2.Room.Status())
	}
}

func TestMatchFoundNotifications(t *testing.T) {
	q, _ := newTestQueue(t)
	a, b := newFakeConn("a"), newFakeConn("b")
	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	p, err := q.Enqueue(b, "bob")
	if err != nil || p == nil {
		t.Fatalf("enqueue b: p=%v err=%v", p, err)
	}
	for _, c := range []*fakeConn{a, b} {
		c.mu.Lock()
		n := len(c.sent)
		var last wire.Envelope
		if n > 0 {
			last = c.sent[n-1]
		}
		c.mu.Unlock()
		if n != 1 || last.Type != wire.EvMatchFound {
			t.Fatalf("%s: got %d envelopes, last type %q", c.id, n, last.Type)
		}
	}
}

func TestDeadTicketSkippedSurvivorRefronted(t *testing.T) {
	q, reg := newTestQueue(t)
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")

	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	a.kill()

	p, err := q.Enqueue(b, "bob")
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if p != nil {
		t.Fatalf("pairing with a dead ticket should not form a room")
	}
	if reg.Len() != 0 {
		t.Fatalf("room created for a dead ticket")
	}
	if q.Len() != 1 {
		t.Fatalf("queue len %d, want the surviving ticket only", q.Len())
	}

	p, err = q.Enqueue(c, "carol")
	if err != nil {
		t.Fatalf("enqueue c: %v", err)
	}
	if p == nil {
		t.Fatalf("survivor should pair with the next arrival")
	}
	got := map[string]bool{p.White.Username: true, p.Black.Username: true}
	if !got["bob"] || !got["carol"] {
		t.Fatalf("expected (bob,carol), got %+v", got)
	}
}

func TestEnqueueTwiceRejected(t *testing.T) {
	q, _ := newTestQueue(t)
	a := newFakeConn("a")
	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(a, "alice"); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	q, _ := newTestQueue(t)
	a := newFakeConn("a")
	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !q.Cancel("a") {
		t.Fatalf("cancel should remove the ticket")
	}
	if q.Len() != 0 {
		t.Fatalf("queue len %d after cancel", q.Len())
	}
	if q.Cancel("a") {
		t.Fatalf("cancelling an absent ticket should be a no-op")
	}
}

func TestCoinFlipAssignsSides(t *testing.T) {
	reg := room.NewRegistry(room.SystemRandom{}, 0)
	q := NewQueue(reg, rules.NewChessOracle(), fixedRandom{coin: true}, 10)
	a, b := newFakeConn("a"), newFakeConn("b")
	if _, err := q.Enqueue(a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	p, err := q.Enqueue(b, "bob")
	if err != nil || p == nil {
		t.Fatalf("enqueue b: p=%v err=%v", p, err)
	}
	// coin=true flips the natural order
	if p.White.Username != "bob" || p.Black.Username != "alice" {
		t.Fatalf("flip not applied: white=%s black=%s", p.White.Username, p.Black.Username)
	}
}
