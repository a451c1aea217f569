package records

import (
	"context"
	"strings"
	"sync"
)

// MemoryRecorder is a development-only recorder used when no database is
// configured. Unknown usernames are created on first increment.
type MemoryRecorder struct {
	mu     sync.Mutex
	wins   map[string]int
	losses map[string]int
	draws  map[string]int
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		wins:   make(map[string]int),
		losses: make(map[string]int),
		draws:  make(map[string]int),
	}
}

func (m *MemoryRecorder) IncrementWin(ctx context.Context, username string) error {
	m.bump(m.wins, username)
	return nil
}

func (m *MemoryRecorder) IncrementLoss(ctx context.Context, username string) error {
	m.bump(m.losses, username)
	return nil
}

func (m *MemoryRecorder) IncrementDraw(ctx context.Context, username string) error {
	m.bump(m.draws, username)
	return nil
}

// Counts returns the current tallies for a username.
func (m *MemoryRecorder) Counts(username string) (wins, losses, draws int) {
	key := strings.TrimSpace(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wins[key], m.losses[key], m.draws[key]
}

func (m *MemoryRecorder) bump(counters map[string]int, username string) {
	key := strings.TrimSpace(username)
	if key == "" {
		return
	}
	m.mu.Lock()
	counters[key]++
	m.mu.Unlock()
}
