package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ChessOracle is the production oracle backed by corentings/chess.
type ChessOracle struct{}

func NewChessOracle() *ChessOracle { return &ChessOracle{} }

func (*ChessOracle) NewGame() Game {
	return &chessGame{g: nchess.NewGame()}
}

type chessGame struct {
	g *nchess.Game
}

func (c *chessGame) FEN() string { return c.g.FEN() }

func (c *chessGame) Turn() Side {
	if c.g.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

func (c *chessGame) OwnsPiece(square string, side Side) bool {
	sq, ok := parseSquare(square)
	if !ok {
		return false
	}
	piece := c.g.Position().Board().Piece(sq)
	if piece == nchess.NoPiece {
		return false
	}
	if piece.Color() == nchess.White {
		return side == White
	}
	return side == Black
}

func (c *chessGame) Move(from, to string) error {
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	if len(uci) != 4 {
		return ErrIllegalMove
	}
	pos := c.g.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		// A bare from/to cannot express promotion; retry as queen promotion
		// before rejecting, matching what the board UI submits.
		mv, err = nchess.UCINotation{}.Decode(pos, uci+"q")
		if err != nil {
			return ErrIllegalMove
		}
	}
	if err := c.g.Move(mv, nil); err != nil {
		return ErrIllegalMove
	}
	return nil
}

func (c *chessGame) Outcome() Outcome {
	switch c.g.Outcome() {
	case nchess.WhiteWon:
		return Outcome{Terminal: true, Winner: White, Method: c.method()}
	case nchess.BlackWon:
		return Outcome{Terminal: true, Winner: Black, Method: c.method()}
	case nchess.Draw:
		return Outcome{Terminal: true, Draw: true, Method: c.method()}
	}
	return Outcome{}
}

func (c *chessGame) method() string {
	return strings.ToLower(c.g.Method().String())
}

func parseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	file := nchess.FileA + nchess.File(s[0]-'a')
	rank := nchess.Rank1 + nchess.Rank(s[1]-'1')
	return nchess.NewSquare(file, rank), true
}
