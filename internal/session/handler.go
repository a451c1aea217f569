// Package session dispatches per-connection protocol events onto rooms,
// the matchmaking queue, and the outcome resolver.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/kapu/chess-arena-go/internal/match"
	"github.com/kapu/chess-arena-go/internal/msgcat"
	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/outcome"
	"github.com/kapu/chess-arena-go/internal/room"
	"github.com/kapu/chess-arena-go/internal/rules"
	"github.com/kapu/chess-arena-go/pkg/wire"
	"go.uber.org/zap"
)

// Handler owns the connection↔room association and routes every inbound
// event. Room state itself is only ever touched through the room's own
// critical section, so two events on the same room cannot interleave.
type Handler struct {
	registry *room.Registry
	queue    *match.Queue
	oracle   rules.Oracle
	resolver *outcome.Resolver
	catalog  *msgcat.Catalog

	defaultDuration int // minutes per side when a request does not carry one

	mu         sync.Mutex
	roomByConn map[string]string
}

func NewHandler(registry *room.Registry, queue *match.Queue, oracle rules.Oracle, resolver *outcome.Resolver, catalog *msgcat.Catalog, defaultDuration int) *Handler {
	h := &Handler{
		registry:        registry,
		queue:           queue,
		oracle:          oracle,
		resolver:        resolver,
		catalog:         catalog,
		defaultDuration: defaultDuration,
		roomByConn:      make(map[string]string),
	}
	registry.AttachTimeoutHandler(h.Timeout)
	return h
}

// Dispatch handles one inbound envelope. The returned result, when non-nil,
// is the direct reply for the originating connection; broadcasts have
// already been pushed by the time Dispatch returns.
func (h *Handler) Dispatch(conn room.Conn, env wire.Envelope) *wire.Result {
	switch env.Type {
	case wire.EvCreateRoom:
		return h.createRoom(conn, env.Payload)
	case wire.EvJoinRoom:
		return h.joinRoom(conn, env.Payload)
	case wire.EvMove:
		return h.move(conn, env.Payload)
	case wire.EvChatMessage:
		return h.chat(conn, env.Payload)
	case wire.EvStartGame:
		return h.start(conn, env.Payload)
	case wire.EvSurrender:
		return h.surrender(conn, env.Payload)
	case wire.EvGameOver:
		return h.gameOverReport(conn, env.Payload)
	case wire.EvEnqueueRandom:
		return h.enqueue(conn, env.Payload)
	case wire.EvCancelSearch:
		h.queue.Cancel(conn.ID())
		return nil
	}
	obslog.L().Warn("protocol_unknown_event", zap.String("type", env.Type), zap.String("conn_id", conn.ID()))
	return fail(wire.CodeBadRequest, "unknown event type")
}

func (h *Handler) createRoom(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.CreateRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed createRoom payload")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return fail(wire.CodeBadRequest, "username is required")
	}
	side, ok := rules.ParseSide(req.Side)
	if !ok {
		return fail(wire.CodeBadRequest, "side must be white or black")
	}
	duration := req.Duration
	if duration <= 0 {
		duration = h.defaultDuration
	}
	r, err := h.registry.Create(h.oracle, duration, side, username, conn)
	if err != nil {
		return fail(wire.CodeBadRequest, err.Error())
	}
	h.associate(conn.ID(), r.ID())
	return ok1(wire.RoomState{
		RoomID:   r.ID(),
		Board:    r.FEN(),
		Side:     string(side),
		Duration: duration,
		Username: username,
	})
}

func (h *Handler) joinRoom(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.JoinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed joinRoom payload")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return fail(wire.CodeBadRequest, "username is required")
	}
	r, side, both, err := h.registry.Join(strings.TrimSpace(req.RoomID), username, conn)
	switch {
	case errors.Is(err, room.ErrNotFound):
		return fail(wire.CodeNotFound, "Game not found!")
	case errors.Is(err, room.ErrRoomFull):
		return fail(wire.CodeRoomFull, "Game is already full!")
	case err != nil:
		return fail(wire.CodeBadRequest, err.Error())
	}
	h.associate(conn.ID(), r.ID())
	if both {
		msg, rerr := h.catalog.Render("room.both_joined", nil)
		if rerr != nil {
			msg = "Both players are ready!"
		}
		r.Broadcast(wire.NewEnvelope(wire.EvBothPlayersJoined, map[string]string{"message": msg}))
	}
	return ok1(wire.RoomState{
		RoomID:   r.ID(),
		Board:    r.FEN(),
		Side:     string(side),
		Duration: r.Duration(),
		Username: username,
	})
}

func (h *Handler) move(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.MoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed move payload")
	}
	r, err := h.registry.Get(strings.TrimSpace(req.RoomID))
	if err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	upd, err := r.ApplyMove(conn.ID(), req.From, req.To)
	switch {
	case errors.Is(err, room.ErrNotAParticipant):
		return fail(wire.CodeNotAParticipant, "You are not part of this game!")
	case errors.Is(err, rules.ErrWrongTurnOrOwnership):
		return fail(wire.CodeWrongTurnOrOwnership, "You can only move your own pieces!")
	case errors.Is(err, rules.ErrIllegalMove):
		return fail(wire.CodeIllegalMove, "Invalid move!")
	case err != nil:
		return fail(wire.CodeBadRequest, err.Error())
	}

	r.Broadcast(wire.NewEnvelope(wire.EvGameState, wire.GameState{
		Board: upd.FEN,
		Turn:  string(upd.Turn),
	}))

	if upd.Outcome.Terminal {
		h.resolveMoveOutcome(r.ID(), upd.Outcome)
	}
	return ok1(wire.MoveAck{Board: upd.FEN})
}

func (h *Handler) resolveMoveOutcome(roomID string, oc rules.Outcome) {
	if oc.Draw {
		if err := h.resolver.Resolve(roomID, outcome.ResultDraw, "", outcome.MethodDraw, ""); err == nil {
			h.forgetRoom(roomID)
		}
		return
	}
	method := oc.Method
	if method == "" {
		method = outcome.MethodCheckmate
	}
	if err := h.resolver.Resolve(roomID, outcome.ResultWin, oc.Winner, method, ""); err == nil {
		h.forgetRoom(roomID)
	}
}

func (h *Handler) chat(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed chat payload")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fail(wire.CodeBadRequest, "empty chat message")
	}
	r, err := h.registry.Get(strings.TrimSpace(req.RoomID))
	if err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	side, ok := r.SideOf(conn.ID())
	if !ok {
		return fail(wire.CodeNotAParticipant, "You are not part of this game!")
	}
	from := ""
	if seat, ok := r.Occupant(side); ok {
		from = seat.Username
	}
	r.BroadcastExcept(conn.ID(), wire.NewEnvelope(wire.EvChatMessage, wire.ChatMessage{From: from, Text: text}))
	return nil
}

func (h *Handler) start(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.StartGameRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed startGame payload")
	}
	r, err := h.registry.Get(strings.TrimSpace(req.RoomID))
	if err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	if err := r.Start(conn.ID()); err != nil {
		return fail(wire.CodeNotAParticipant, "You are not part of this game!")
	}
	r.Broadcast(wire.NewEnvelope(wire.EvStartGame, nil))
	return nil
}

// surrender declares the caller's side the loser regardless of what side
// the payload claims should win; the room's own seat assignment is
// authoritative.
func (h *Handler) surrender(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.SurrenderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed surrender payload")
	}
	roomID := strings.TrimSpace(req.RoomID)
	r, err := h.registry.Get(roomID)
	if err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	side, ok := r.SideOf(conn.ID())
	if !ok {
		return fail(wire.CodeNotAParticipant, "You are not part of this game!")
	}
	if err := h.resolver.Resolve(roomID, outcome.ResultWin, side.Opponent(), outcome.MethodSurrender, ""); err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	h.forgetRoom(roomID)
	return nil
}

// gameOverReport accepts a client-reported terminal condition. Duplicates
// (or reports racing a server-side resolution) hit the idempotency guard
// and come back as not found.
func (h *Handler) gameOverReport(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.GameOverReport
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed gameOver payload")
	}
	roomID := strings.TrimSpace(req.RoomID)
	r, err := h.registry.Get(roomID)
	if err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	if _, ok := r.SideOf(conn.ID()); !ok {
		return fail(wire.CodeNotAParticipant, "You are not part of this game!")
	}
	winnerSide, ok := rules.ParseSide(req.WinnerSide)
	if !ok {
		return fail(wire.CodeBadRequest, "winnerSide must be white or black")
	}
	if err := h.resolver.Resolve(roomID, outcome.ResultWin, winnerSide, outcome.MethodReported, strings.TrimSpace(req.Message)); err != nil {
		return fail(wire.CodeNotFound, "Game not found!")
	}
	h.forgetRoom(roomID)
	return nil
}

func (h *Handler) enqueue(conn room.Conn, raw json.RawMessage) *wire.Result {
	var req wire.EnqueueRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail(wire.CodeBadRequest, "malformed enqueueRandom payload")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return fail(wire.CodeBadRequest, "username is required")
	}
	pairing, err := h.queue.Enqueue(conn, username)
	if err != nil {
		return fail(wire.CodeBadRequest, err.Error())
	}
	if pairing != nil {
		h.associate(pairing.White.Conn.ID(), pairing.Room.ID())
		h.associate(pairing.Black.Conn.ID(), pairing.Room.ID())
	}
	return nil
}

// Disconnect tears down whatever the connection was doing: its queue
// ticket if it was only searching, or its room if it was seated. A vanished
// participant is an abnormal termination, not a rules outcome: remaining
// occupants are notified and no counters change.
func (h *Handler) Disconnect(conn room.Conn) {
	h.queue.Cancel(conn.ID())

	h.mu.Lock()
	roomID, ok := h.roomByConn[conn.ID()]
	delete(h.roomByConn, conn.ID())
	h.mu.Unlock()
	if !ok {
		return
	}

	r, taken := h.registry.Take(roomID)
	if !taken {
		return
	}
	username := ""
	if side, ok := r.SideOf(conn.ID()); ok {
		if seat, ok := r.Occupant(side); ok {
			username = seat.Username
		}
	}
	msg, err := h.catalog.Render("room.opponent_disconnected", map[string]string{"Username": username})
	if err != nil {
		msg = username + " disconnected!"
	}
	r.BroadcastExcept(conn.ID(), wire.NewEnvelope(wire.EvOpponentLeft, wire.OpponentLeft{Message: msg}))
	h.forgetRoom(roomID)
	obslog.L().Info("room_abandoned",
		zap.String("room_id", roomID),
		zap.String("conn_id", conn.ID()),
		zap.String("username", username),
	)
}

// Timeout is invoked by a room clock when the active side's countdown hits
// zero; it is equivalent to that side surrendering.
func (h *Handler) Timeout(roomID string, side rules.Side) {
	if err := h.resolver.Resolve(roomID, outcome.ResultWin, side.Opponent(), outcome.MethodTimeout, ""); err != nil {
		return
	}
	h.forgetRoom(roomID)
}

func (h *Handler) associate(connID, roomID string) {
	h.mu.Lock()
	h.roomByConn[connID] = roomID
	h.mu.Unlock()
}

func (h *Handler) forgetRoom(roomID string) {
	h.mu.Lock()
	for c, r := range h.roomByConn {
		if r == roomID {
			delete(h.roomByConn, c)
		}
	}
	h.mu.Unlock()
}

func fail(code, message string) *wire.Result {
	res := wire.Fail(code, message)
	return &res
}

func ok1(data any) *wire.Result {
	res := wire.Ok(data)
	return &res
}
