package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestArchive(t *testing.T) (*Archive, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	a, err := NewArchive(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

func TestSaveAndByUser(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	recs := []*Record{
		{RoomID: "r1", White: "alice", Black: "bob", Winner: "alice", Loser: "bob", Result: "win", Method: "checkmate", EndedAt: time.Now().Add(-time.Hour)},
		{RoomID: "r2", White: "bob", Black: "alice", Result: "draw", Method: "stalemate", EndedAt: time.Now()},
	}
	for _, rec := range recs {
		if err := a.Save(ctx, rec); err != nil {
			t.Fatalf("Save %s: %v", rec.RoomID, err)
		}
	}

	got, err := a.ByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Most recent first
	if got[0].RoomID != "r2" || got[1].RoomID != "r1" {
		t.Fatalf("wrong order: %s, %s", got[0].RoomID, got[1].RoomID)
	}
	if got[1].Winner != "alice" || got[1].Method != "checkmate" {
		t.Fatalf("record corrupted: %+v", got[1])
	}
}

func TestByUserSkipsExpiredRecords(t *testing.T) {
	a, mr := newTestArchive(t)
	ctx := context.Background()

	if err := a.Save(ctx, &Record{RoomID: "r1", White: "alice", Black: "bob", Result: "draw", Method: "stalemate", EndedAt: time.Now()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Simulate the record TTL firing while the index entry survives.
	mr.FastForward(25 * time.Hour)
	mr.SetAdd("match:index:user:alice", "r1")

	got, err := a.ByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired record returned: %+v", got[0])
	}
}

func TestByUserUnknown(t *testing.T) {
	a, _ := newTestArchive(t)
	got, err := a.ByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unexpected records for unknown user")
	}
}

func TestNewArchiveRejectsBadURL(t *testing.T) {
	if _, err := NewArchive(""); err == nil {
		t.Fatalf("empty url accepted")
	}
	if _, err := NewArchive("http://localhost:6379"); err == nil {
		t.Fatalf("non-redis scheme accepted")
	}
}
