package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// RandomSource isolates every randomized decision (room ids, side coin
// flips) so tests can substitute a deterministic provider.
type RandomSource interface {
	// RoomID generates an id for an explicitly created room.
	RoomID() string
	// MatchRoomID generates an id for a room synthesized by matchmaking.
	MatchRoomID() string
	// CoinFlip returns an unbiased boolean.
	CoinFlip() bool
}

const roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// SystemRandom is the production source, backed by crypto/rand.
type SystemRandom struct{}

func (SystemRandom) RoomID() string {
	b := make([]byte, 9)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDAlphabet))))
		if err != nil {
			return fmt.Sprintf("room_%d", time.Now().UnixNano())
		}
		b[i] = roomIDAlphabet[n.Int64()]
	}
	return "room_" + string(b)
}

func (SystemRandom) MatchRoomID() string { return uuid.NewString() }

func (SystemRandom) CoinFlip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return time.Now().UnixNano()%2 == 0
	}
	return n.Int64() == 0
}
