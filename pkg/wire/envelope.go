package wire

import "encoding/json"

// Event names covering the full client/server surface.
const (
	EvCreateRoom        = "createRoom"
	EvJoinRoom          = "joinRoom"
	EvMove              = "move"
	EvGameState         = "gameState"
	EvBothPlayersJoined = "bothPlayersJoined"
	EvStartGame         = "startGame"
	EvChatMessage       = "chatMessage"
	EvSurrender         = "surrender"
	EvGameOver          = "gameOver"
	EvEnqueueRandom     = "enqueueRandom"
	EvMatchFound        = "matchFound"
	EvOpponentLeft      = "opponentLeft"
	EvCancelSearch      = "cancelSearch"
)

// Envelope frames every message in both directions. Payload layout is
// event-specific; unknown types are rejected at the transport boundary.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(eventType string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Type: eventType, Payload: raw}
}

// Result is the direct reply to a client request. Either OK with Data set,
// or a coded failure addressed only to the caller.
type Result struct {
	OK      bool            `json:"ok"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Failure codes, one per entry in the error taxonomy.
const (
	CodeBadRequest           = "badRequest"
	CodeNotFound             = "notFound"
	CodeRoomFull             = "roomFull"
	CodeNotAParticipant      = "notAParticipant"
	CodeIllegalMove          = "illegalMove"
	CodeWrongTurnOrOwnership = "wrongTurnOrOwnership"
)

func Ok(data any) Result {
	raw, _ := json.Marshal(data)
	return Result{OK: true, Data: raw}
}

func Fail(code, message string) Result {
	return Result{OK: false, Code: code, Message: message}
}
