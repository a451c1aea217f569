package match

import (
	"errors"
	"sync"
	"time"

	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/room"
	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/pkg/wire"
	"go.uber.org/zap"
)

var ErrAlreadyQueued = errors.New("connection is already waiting for a match")

// Ticket is one waiting player. It exists only inside the queue and is
// discarded the moment it is paired or cancelled.
type Ticket struct {
	Conn       room.Conn
	Username   string
	EnqueuedAt time.Time
}

// Pairing reports a successful match.
type Pairing struct {
	Room  *room.Room
	White *Ticket
	Black *Ticket
}

// Queue pairs players requesting a random opponent, strictly FIFO. The
// liveness check and the pop of both tickets happen as one locked step so
// concurrent enqueues can never race over the same ticket.
type Queue struct {
	mu       sync.Mutex
	tickets  []*Ticket
	registry *room.Registry
	oracle   rules.Oracle
	rnd      room.RandomSource
	duration int // minutes per side for matched games
}

func NewQueue(registry *room.Registry, oracle rules.Oracle, rnd room.RandomSource, duration int) *Queue {
	return &Queue{
		registry: registry,
		oracle:   oracle,
		rnd:      rnd,
		duration: duration,
	}
}

// Enqueue adds a waiting player and immediately attempts to pair the two
// oldest tickets. Returns the pairing when one was formed on this call.
func (q *Queue) Enqueue(conn room.Conn, username string) (*Pairing, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tickets {
		if t.Conn.ID() == conn.ID() {
			return nil, ErrAlreadyQueued
		}
	}
	q.tickets = append(q.tickets, &Ticket{Conn: conn, Username: username, EnqueuedAt: time.Now()})
	obslog.L().Info("match_enqueue",
		zap.String("conn_id", conn.ID()),
		zap.String("username", username),
		zap.Int("queue_len", len(q.tickets)),
	)
	return q.tryPairLocked()
}

// Cancel removes the connection's ticket if present. Removing an absent
// ticket is a no-op.
func (q *Queue) Cancel(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tickets {
		if t.Conn.ID() == connID {
			q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
			obslog.L().Info("match_cancel", zap.String("conn_id", connID))
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tickets)
}

func (q *Queue) tryPairLocked() (*Pairing, error) {
	if len(q.tickets) < 2 {
		return nil, nil
	}
	first, second := q.tickets[0], q.tickets[1]
	q.tickets = q.tickets[2:]

	// Either one may have vanished while waiting. The survivor goes back to
	// the FRONT of the queue so it is the next to be paired; no room is
	// created this cycle.
	if !first.Conn.Alive() || !second.Conn.Alive() {
		live := make([]*Ticket, 0, 1)
		if first.Conn.Alive() {
			live = append(live, first)
		}
		if second.Conn.Alive() {
			live = append(live, second)
		}
		q.tickets = append(live, q.tickets...)
		return nil, nil
	}

	white, black := first, second
	if q.rnd.CoinFlip() {
		white, black = second, first
	}
	r, err := q.registry.CreateMatched(q.oracle, q.duration,
		room.Seat{ConnID: white.Conn.ID(), Username: white.Username, Conn: white.Conn},
		room.Seat{ConnID: black.Conn.ID(), Username: black.Username, Conn: black.Conn},
	)
	if err != nil {
		// Registry at capacity: put both tickets back in order.
		q.tickets = append([]*Ticket{first, second}, q.tickets...)
		return nil, err
	}

	_ = white.Conn.Send(wire.NewEnvelope(wire.EvMatchFound, wire.MatchFound{
		Opponent: black.Username,
		Side:     string(rules.White),
		RoomID:   r.ID(),
	}))
	_ = black.Conn.Send(wire.NewEnvelope(wire.EvMatchFound, wire.MatchFound{
		Opponent: white.Username,
		Side:     string(rules.Black),
		RoomID:   r.ID(),
	}))
	obslog.L().Info("match_pair",
		zap.String("room_id", r.ID()),
		zap.String("white", white.Username),
		zap.String("black", black.Username),
		zap.Int("queue_len", len(q.tickets)),
	)
	return &Pairing{Room: r, White: white, Black: black}, nil
}
