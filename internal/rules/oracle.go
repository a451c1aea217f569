package rules

import (
	"errors"
	"strings"
)

// Side identifies a player's color.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// ParseSide accepts "white"/"black" and the single-letter forms the web
// client sends ("w"/"b").
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	}
	return "", false
}

var (
	ErrIllegalMove          = errors.New("illegal move")
	ErrWrongTurnOrOwnership = errors.New("piece does not belong to the moving side")
)

// Outcome reports whether a game has reached a terminal state.
type Outcome struct {
	Terminal bool
	Draw     bool
	Winner   Side   // set when Terminal && !Draw
	Method   string // "checkmate", "stalemate", ...
}

// Game is one live board owned by a room. Implementations are not safe for
// concurrent use; the room's critical section covers every call.
type Game interface {
	// FEN returns the current position in Forsyth-Edwards notation.
	FEN() string
	// Turn returns the side to move.
	Turn() Side
	// OwnsPiece reports whether the piece on the given square (e.g. "e2")
	// belongs to side. An empty square owns nothing.
	OwnsPiece(square string, side Side) bool
	// Move applies a from/to move, returning ErrIllegalMove if the rules
	// engine rejects it. The position is unchanged on failure.
	Move(from, to string) error
	// Outcome queries the terminal status after the latest move.
	Outcome() Outcome
}

// Oracle creates fresh games. The session core holds no chess knowledge of
// its own; everything legality-related goes through here.
type Oracle interface {
	NewGame() Game
}
