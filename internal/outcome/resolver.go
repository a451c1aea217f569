// Package outcome turns a terminal condition into winner/loser identities,
// a terminal broadcast, and persisted counters.
package outcome

import (
	"context"
	"errors"
	"time"

	"github.com/kapu/chess-arena-go/internal/history"
	"github.com/kapu/chess-arena-go/internal/msgcat"
	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/records"
	"github.com/kapu/chess-arena-go/internal/room"
	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/pkg/wire"
	"go.uber.org/zap"
)

// Result classifies a terminal outcome.
type Result string

const (
	ResultWin  Result = "win"
	ResultDraw Result = "draw"
)

// Methods carried through to the terminal message and the archive.
const (
	MethodCheckmate = "checkmate"
	MethodSurrender = "surrender"
	MethodTimeout   = "timeout"
	MethodReported  = "reported"
	MethodDraw      = "draw"
)

const recordTimeout = 5 * time.Second

type Resolver struct {
	registry *room.Registry
	recorder records.Recorder
	catalog  *msgcat.Catalog
	archive  *history.Archive
}

func NewResolver(registry *room.Registry, recorder records.Recorder, catalog *msgcat.Catalog) *Resolver {
	return &Resolver{registry: registry, recorder: recorder, catalog: catalog}
}

// AttachArchive wires the optional match archive.
func (r *Resolver) AttachArchive(a *history.Archive) {
	if r != nil {
		r.archive = a
	}
}

// Resolve claims the room out of the registry, broadcasts the terminal
// message to its occupants, and updates counters off the event path.
// Claiming first makes resolution idempotent per room instance: a second
// call for the same room fails with room.ErrNotFound and counts nothing.
func (r *Resolver) Resolve(roomID string, result Result, winnerSide rules.Side, method, detail string) error {
	rm, ok := r.registry.Take(roomID)
	if !ok {
		return room.ErrNotFound
	}

	var white, black string
	if s, ok := rm.Occupant(rules.White); ok {
		white = s.Username
	}
	if s, ok := rm.Occupant(rules.Black); ok {
		black = s.Username
	}
	var winner, loser string
	if result == ResultWin {
		if winnerSide == rules.White {
			winner, loser = white, black
		} else {
			winner, loser = black, white
		}
	}

	msg := r.message(result, winnerSide, winner, method, detail)
	rm.Broadcast(wire.NewEnvelope(wire.EvGameOver, wire.GameOver{
		Message: msg,
		Winner:  winner,
		Loser:   loser,
		Result:  string(result),
	}))
	obslog.L().Info("game_over",
		zap.String("room_id", roomID),
		zap.String("result", string(result)),
		zap.String("method", method),
		zap.String("winner", winner),
		zap.String("loser", loser),
	)

	rec := &history.Record{
		RoomID:  roomID,
		White:   white,
		Black:   black,
		Winner:  winner,
		Loser:   loser,
		Result:  string(result),
		Method:  method,
		EndedAt: time.Now(),
	}
	go r.record(result, winner, loser, white, black, rec)
	return nil
}

// record runs detached from the event path. Counter failures are logged,
// never retried, and never reach the players.
func (r *Resolver) record(result Result, winner, loser, white, black string, rec *history.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	switch result {
	case ResultWin:
		if winner != "" && loser != "" {
			r.logIfErr(r.recorder.IncrementWin(ctx, winner), "win", winner)
			r.logIfErr(r.recorder.IncrementLoss(ctx, loser), "loss", loser)
		}
	case ResultDraw:
		if white != "" && black != "" {
			r.logIfErr(r.recorder.IncrementDraw(ctx, white), "draw", white)
			r.logIfErr(r.recorder.IncrementDraw(ctx, black), "draw", black)
		}
	}

	if r.archive != nil {
		if err := r.archive.Save(ctx, rec); err != nil {
			obslog.L().Warn("archive_error", zap.String("room_id", rec.RoomID), zap.Error(err))
		}
	}
}

func (r *Resolver) logIfErr(err error, counter, username string) {
	if err == nil {
		return
	}
	if errors.Is(err, records.ErrUnknownUser) {
		obslog.L().Warn("record_unknown_user", zap.String("counter", counter), zap.String("username", username))
		return
	}
	obslog.L().Error("record_error", zap.String("counter", counter), zap.String("username", username), zap.Error(err))
}

func (r *Resolver) message(result Result, winnerSide rules.Side, winner, method, detail string) string {
	key := "gameover." + method
	data := map[string]string{
		"Winner":     winner,
		"WinnerSide": sideTitle(winnerSide),
		"Detail":     detail,
	}
	if result == ResultDraw {
		key = "gameover.draw"
	}
	msg, err := r.catalog.Render(key, data)
	if err != nil {
		obslog.L().Warn("msgcat_render_error", zap.String("key", key), zap.Error(err))
		if result == ResultDraw {
			return "Game drawn."
		}
		return winner + " wins!"
	}
	return msg
}

func sideTitle(s rules.Side) string {
	if s == rules.Black {
		return "Black"
	}
	return "White"
}
