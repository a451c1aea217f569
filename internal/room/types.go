package room

import (
	"errors"

	"github.com/kapu/chess-arena-go/pkg/wire"
)

var (
	ErrNotFound         = errors.New("room not found")
	ErrRoomFull         = errors.New("room already has two occupants")
	ErrNotAParticipant  = errors.New("connection is not part of this room")
	ErrCapacityExceeded = errors.New("too many concurrent rooms")
)

// Conn is the transport handle for one connected player. The room layer
// only ever pushes envelopes at it and asks whether it is still attached.
type Conn interface {
	ID() string
	Send(env wire.Envelope) error
	Alive() bool
}

// Seat binds one side of a room to a connection and display name.
type Seat struct {
	ConnID   string
	Username string
	Conn     Conn
}

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting    Status = "WAITING_FOR_OPPONENT"
	StatusReady      Status = "READY"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)
