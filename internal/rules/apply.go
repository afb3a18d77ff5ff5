package rules

import (
	"errors"

	"llmchess/internal/board"
)

var ErrInvalidPromotion = errors.New("invalid promotion")

// Applied is the outcome of executing one move
type Applied struct {
	Board            board.Board
	Castling         board.CastlingRights
	EnPassant        board.Square
	PromotionPending bool
	Captured         board.Piece // zero when nothing was captured
}

// Apply executes a move that was already validated. It does not re-check legality;
// applying an unvalidated move or a move from an empty square is a caller error.
// The input board is not modified.
func Apply(b board.Board, from, to board.Square, rights board.CastlingRights, ep board.Square) Applied {
	piece := b.At(from)
	res := Applied{
		Board:     b,
		Castling:  rights,
		EnPassant: board.NoSquare,
		Captured:  b.At(to),
	}
	if piece.IsEmpty() {
		res.Captured = board.Piece{}
		return res
	}

	nb := &res.Board
	nb.Set(to, piece)
	nb.Set(from, board.Piece{})

	switch piece.Type {
	case board.Pawn:
		// En passant: diagonal onto the empty target square removes the passed pawn
		if from.Col != to.Col && b.IsEmpty(to) && ep.Valid() && to == ep {
			passed := board.Square{Row: from.Row, Col: to.Col}
			res.Captured = nb.At(passed)
			nb.Set(passed, board.Piece{})
		}
		if abs(to.Row-from.Row) == 2 {
			res.EnPassant = board.Square{Row: (from.Row + to.Row) / 2, Col: from.Col}
		}
		if to.Row == 0 || to.Row == 7 {
			res.PromotionPending = true
		}

	case board.King:
		if abs(to.Col-from.Col) == 2 {
			if to.Col == 6 {
				nb.Set(board.Square{Row: from.Row, Col: 5}, nb.At(board.Square{Row: from.Row, Col: 7}))
				nb.Set(board.Square{Row: from.Row, Col: 7}, board.Piece{})
			} else if to.Col == 2 {
				nb.Set(board.Square{Row: from.Row, Col: 3}, nb.At(board.Square{Row: from.Row, Col: 0}))
				nb.Set(board.Square{Row: from.Row, Col: 0}, board.Piece{})
			}
		}
		clearKingRights(&res.Castling, piece.Color)

	case board.Rook:
		clearRookRight(&res.Castling, piece.Color, from)
	}

	// A rook captured on its home corner can no longer castle
	if res.Captured.Type == board.Rook {
		clearRookRight(&res.Castling, res.Captured.Color, to)
	}

	return res
}

// Promote replaces the pawn on a back-rank square with a piece of type t
func Promote(b board.Board, sq board.Square, t board.PieceType) (board.Board, error) {
	if !sq.Valid() || (sq.Row != 0 && sq.Row != 7) {
		return b, ErrInvalidPromotion
	}
	switch t {
	case board.Knight, board.Bishop, board.Rook, board.Queen:
	default:
		return b, ErrInvalidPromotion
	}
	p := b.At(sq)
	if p.Type != board.Pawn {
		return b, ErrInvalidPromotion
	}
	b.Set(sq, board.Piece{Color: p.Color, Type: t})
	return b, nil
}

func clearKingRights(c *board.CastlingRights, color board.Color) {
	if color == board.White {
		c.WhiteKingside = false
		c.WhiteQueenside = false
	} else {
		c.BlackKingside = false
		c.BlackQueenside = false
	}
}

func clearRookRight(c *board.CastlingRights, color board.Color, sq board.Square) {
	if sq.Row != board.HomeRow(color) {
		return
	}
	switch {
	case color == board.White && sq.Col == 0:
		c.WhiteQueenside = false
	case color == board.White && sq.Col == 7:
		c.WhiteKingside = false
	case color == board.Black && sq.Col == 0:
		c.BlackQueenside = false
	case color == board.Black && sq.Col == 7:
		c.BlackKingside = false
	}
}
