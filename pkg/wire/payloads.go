package wire

// Client → server requests.

type CreateRoomRequest struct {
	Duration int    `json:"duration"` // minutes per side
	Side     string `json:"side"`     // "white" | "black"
	Username string `json:"username"`
}

type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type MoveRequest struct {
	RoomID string `json:"roomId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type ChatRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type StartGameRequest struct {
	RoomID string `json:"roomId"`
}

type SurrenderRequest struct {
	RoomID     string `json:"roomId"`
	WinnerSide string `json:"winnerSide"` // side that wins by the surrender
}

// GameOverReport is a client-reported terminal condition (e.g. the client UI
// detected checkmate). The server re-resolves it idempotently.
type GameOverReport struct {
	RoomID     string `json:"roomId"`
	Message    string `json:"message,omitempty"`
	WinnerSide string `json:"winnerSide"`
}

type EnqueueRequest struct {
	Username string `json:"username"`
}

// Server → client payloads.

type RoomState struct {
	RoomID   string `json:"roomId"`
	Board    string `json:"board"` // FEN
	Side     string `json:"side"`  // caller's assigned side
	Duration int    `json:"duration"`
	Username string `json:"username"`
}

type MoveAck struct {
	Board string `json:"board"`
}

type GameState struct {
	Board string `json:"board"`
	Turn  string `json:"turn"` // side to move
}

type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

type GameOver struct {
	Message string `json:"message"`
	Winner  string `json:"winner,omitempty"`
	Loser   string `json:"loser,omitempty"`
	Result  string `json:"result"` // "win" | "draw"
}

type MatchFound struct {
	Opponent string `json:"opponent"`
	Side     string `json:"side"`
	RoomID   string `json:"roomId"`
}

type OpponentLeft struct {
	Message string `json:"message"`
}
