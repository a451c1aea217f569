package room

import (
	"sync"
	"time"

	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/rules"
	"go.uber.org/zap"
)

// Registry owns the set of live rooms. It is the sole owner of room
// lifetime; connections only hold room ids.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	rnd       RandomSource
	maxRooms  int
	onTimeout func(roomID string, side rules.Side)
}

func NewRegistry(rnd RandomSource, maxRooms int) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		rnd:      rnd,
		maxRooms: maxRooms,
	}
}

// AttachTimeoutHandler wires the callback invoked when a room's clock runs
// out for the active side. Must be set before any game starts.
func (g *Registry) AttachTimeoutHandler(fn func(roomID string, side rules.Side)) {
	g.mu.Lock()
	g.onTimeout = fn
	g.mu.Unlock()
}

// Create allocates a room with a fresh unique id, seating the creator on
// the side they asked for. The other seat stays empty.
func (g *Registry) Create(oracle rules.Oracle, duration int, side rules.Side, username string, conn Conn) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maxRooms > 0 && len(g.rooms) >= g.maxRooms {
		return nil, ErrCapacityExceeded
	}
	id := g.rnd.RoomID()
	for g.rooms[id] != nil {
		id = g.rnd.RoomID()
	}
	r := newRoom(id, oracle.NewGame(), duration)
	r.clock = g.newClock(id, duration)
	r.seat(side, username, conn)
	g.rooms[id] = r
	obslog.L().Info("room_create",
		zap.String("room_id", id),
		zap.String("creator", username),
		zap.String("side", string(side)),
		zap.Int("duration_min", duration),
	)
	return r, nil
}

// CreateMatched builds a fully seated, ready room for a matchmaking pair.
func (g *Registry) CreateMatched(oracle rules.Oracle, duration int, white, black Seat) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maxRooms > 0 && len(g.rooms) >= g.maxRooms {
		return nil, ErrCapacityExceeded
	}
	id := g.rnd.MatchRoomID()
	for g.rooms[id] != nil {
		id = g.rnd.MatchRoomID()
	}
	r := newRoom(id, oracle.NewGame(), duration)
	r.clock = g.newClock(id, duration)
	r.status = StatusReady
	r.seats[rules.White] = &Seat{ConnID: white.ConnID, Username: white.Username, Conn: white.Conn}
	r.seats[rules.Black] = &Seat{ConnID: black.ConnID, Username: black.Username, Conn: black.Conn}
	g.rooms[id] = r
	obslog.L().Info("match_room_create",
		zap.String("room_id", id),
		zap.String("white", white.Username),
		zap.String("black", black.Username),
	)
	return r, nil
}

// Join seats a player in an existing room on whichever side is free.
func (g *Registry) Join(roomID, username string, conn Conn) (*Room, rules.Side, bool, error) {
	g.mu.RLock()
	r := g.rooms[roomID]
	g.mu.RUnlock()
	if r == nil {
		return nil, "", false, ErrNotFound
	}
	side, both, err := r.join(username, conn)
	if err != nil {
		return nil, "", false, err
	}
	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("username", username),
		zap.String("side", string(side)),
	)
	return r, side, both, nil
}

func (g *Registry) Get(roomID string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if r := g.rooms[roomID]; r != nil {
		return r, nil
	}
	return nil, ErrNotFound
}

// Take removes the room and returns it, stopping its clock. The boolean is
// false when the room was already gone, which doubles as the idempotency
// guard for outcome resolution.
func (g *Registry) Take(roomID string) (*Room, bool) {
	g.mu.Lock()
	r := g.rooms[roomID]
	delete(g.rooms, roomID)
	g.mu.Unlock()
	if r == nil {
		return nil, false
	}
	r.close()
	obslog.L().Info("room_remove", zap.String("room_id", roomID))
	return r, true
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) newClock(roomID string, duration int) *Clock {
	if duration <= 0 {
		return nil
	}
	return NewClock(time.Duration(duration)*time.Minute, func(side rules.Side) {
		g.mu.RLock()
		fn := g.onTimeout
		g.mu.RUnlock()
		if fn != nil {
			fn(roomID, side)
		}
	})
}
