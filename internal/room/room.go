package room

import (
	"sync"
	"time"

	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/pkg/wire"
)

// Room is the authoritative state for one pairing of two players. Every
// mutation happens under the room's own lock; events touching the same
// room never interleave their read-modify-write.
type Room struct {
	mu        sync.Mutex
	id        string
	game      rules.Game
	duration  int // minutes per side
	status    Status
	seats     map[rules.Side]*Seat
	clock     *Clock
	createdAt time.Time
}

func newRoom(id string, game rules.Game, duration int) *Room {
	return &Room{
		id:        id,
		game:      game,
		duration:  duration,
		status:    StatusWaiting,
		seats:     map[rules.Side]*Seat{rules.White: nil, rules.Black: nil},
		createdAt: time.Now(),
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) Duration() int { return r.duration }

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// JoinedCount equals the number of occupied seats at all times.
func (r *Room) JoinedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinedCountLocked()
}

func (r *Room) joinedCountLocked() int {
	n := 0
	for _, s := range r.seats {
		if s != nil {
			n++
		}
	}
	return n
}

// Occupant returns a copy of the seat bound to side.
func (r *Room) Occupant(side rules.Side) (Seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.seats[side]; s != nil {
		return *s, true
	}
	return Seat{}, false
}

// SideOf resolves which side a connection occupies, if any.
func (r *Room) SideOf(connID string) (rules.Side, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sideOfLocked(connID)
}

func (r *Room) sideOfLocked(connID string) (rules.Side, bool) {
	for side, s := range r.seats {
		if s != nil && s.ConnID == connID {
			return side, true
		}
	}
	return "", false
}

func (r *Room) FEN() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.FEN()
}

func (r *Room) Turn() rules.Side {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Turn()
}

// seat places the creator on the requested side. Only used at creation.
func (r *Room) seat(side rules.Side, username string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[side] = &Seat{ConnID: conn.ID(), Username: username, Conn: conn}
}

// join assigns the joiner to the first empty seat (white before black) and
// reports whether the room is now fully occupied.
func (r *Room) join(username string, conn Conn) (rules.Side, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, side := range []rules.Side{rules.White, rules.Black} {
		if r.seats[side] == nil {
			r.seats[side] = &Seat{ConnID: conn.ID(), Username: username, Conn: conn}
			both := r.joinedCountLocked() == 2
			if both && r.status == StatusWaiting {
				r.status = StatusReady
			}
			return side, both, nil
		}
	}
	return "", false, ErrRoomFull
}

// MoveUpdate is the room state after a successful move.
type MoveUpdate struct {
	FEN     string
	Turn    rules.Side
	Outcome rules.Outcome
}

// ApplyMove validates occupancy and piece ownership, then submits the move
// to the rules oracle. On any failure the board is unchanged and only the
// caller learns about it.
func (r *Room) ApplyMove(connID, from, to string) (MoveUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	side, ok := r.sideOfLocked(connID)
	if !ok {
		return MoveUpdate{}, ErrNotAParticipant
	}
	if !r.game.OwnsPiece(from, side) {
		return MoveUpdate{}, rules.ErrWrongTurnOrOwnership
	}
	if err := r.game.Move(from, to); err != nil {
		return MoveUpdate{}, err
	}
	turn := r.game.Turn()
	if r.status == StatusInProgress && r.clock != nil {
		r.clock.Switch(turn)
	}
	return MoveUpdate{FEN: r.game.FEN(), Turn: turn, Outcome: r.game.Outcome()}, nil
}

// Start moves a ready room into progress and arms the clock for the side
// to move. Re-sending start on a running game is a relay-only no-op.
func (r *Room) Start(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sideOfLocked(connID); !ok {
		return ErrNotAParticipant
	}
	if r.status == StatusReady {
		r.status = StatusInProgress
		if r.clock != nil {
			r.clock.Start(r.game.Turn())
		}
	}
	return nil
}

// Broadcast pushes an envelope to every occupant.
func (r *Room) Broadcast(env wire.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.seats {
		if s != nil && s.Conn != nil {
			_ = s.Conn.Send(env)
		}
	}
}

// BroadcastExcept pushes an envelope to every occupant but the named one.
func (r *Room) BroadcastExcept(connID string, env wire.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.seats {
		if s != nil && s.Conn != nil && s.ConnID != connID {
			_ = s.Conn.Send(env)
		}
	}
}

// close marks the room finished and cancels its clock. Called exactly once
// when the registry removes the room.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusFinished
	if r.clock != nil {
		r.clock.Stop()
	}
}
