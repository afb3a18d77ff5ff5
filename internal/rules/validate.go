// Package rules implements move geometry, check detection, legal move generation,
// move execution and game status classification. Every function takes board values
// and returns new values; nothing here keeps state between calls.
package rules

import "llmchess/internal/board"

// IsLegalGeometry reports whether the piece on from may move to to under its own
// movement rules. It does not consider whether the mover's king ends up in check,
// and castling is not tested for attacked squares.
func IsLegalGeometry(b board.Board, from, to board.Square, rights board.CastlingRights, ep board.Square) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}

	piece := b.At(from)
	if piece.IsEmpty() {
		return false
	}

	// Can't capture own piece
	target := b.At(to)
	if !target.IsEmpty() && target.Color == piece.Color {
		return false
	}

	switch piece.Type {
	case board.Pawn:
		return validPawnMove(b, piece.Color, from, to, ep)
	case board.Knight:
		return validKnightMove(from, to)
	case board.Bishop:
		return validBishopMove(b, from, to)
	case board.Rook:
		return validRookMove(b, from, to)
	case board.Queen:
		return validRookMove(b, from, to) || validBishopMove(b, from, to)
	case board.King:
		return validKingMove(b, piece.Color, from, to, rights)
	default:
		return false
	}
}

func validPawnMove(b board.Board, color board.Color, from, to board.Square, ep board.Square) bool {
	dir := board.PawnDirection(color)
	startRow := 6
	if color == board.Black {
		startRow = 1
	}

	// Single push
	if from.Col == to.Col && to.Row == from.Row+dir {
		return b.IsEmpty(to)
	}

	// Double push from the starting rank
	if from.Col == to.Col && from.Row == startRow && to.Row == from.Row+2*dir {
		mid := board.Square{Row: from.Row + dir, Col: from.Col}
		return b.IsEmpty(mid) && b.IsEmpty(to)
	}

	// Diagonal only as a capture, en passant included
	if abs(from.Col-to.Col) == 1 && to.Row == from.Row+dir {
		if !b.IsEmpty(to) {
			return true
		}
		return ep.Valid() && to == ep
	}

	return false
}

func validKnightMove(from, to board.Square) bool {
	dr := abs(from.Row - to.Row)
	dc := abs(from.Col - to.Col)
	return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
}

func validBishopMove(b board.Board, from, to board.Square) bool {
	dr := abs(from.Row - to.Row)
	dc := abs(from.Col - to.Col)
	if dr != dc || dr == 0 {
		return false
	}
	return pathClear(b, from, to)
}

func validRookMove(b board.Board, from, to board.Square) bool {
	if from.Row != to.Row && from.Col != to.Col {
		return false
	}
	return pathClear(b, from, to)
}

func validKingMove(b board.Board, color board.Color, from, to board.Square, rights board.CastlingRights) bool {
	dr := abs(from.Row - to.Row)
	dc := abs(from.Col - to.Col)
	if dr <= 1 && dc <= 1 {
		return true
	}

	if dr != 0 || dc != 2 {
		return false
	}

	home := board.HomeRow(color)
	if from.Row != home || from.Col != 4 {
		return false
	}
	rook := board.Piece{Color: color, Type: board.Rook}

	switch to.Col {
	case 6:
		return rights.Kingside(color) &&
			b[home][5].IsEmpty() && b[home][6].IsEmpty() &&
			b[home][7] == rook
	case 2:
		return rights.Queenside(color) &&
			b[home][1].IsEmpty() && b[home][2].IsEmpty() && b[home][3].IsEmpty() &&
			b[home][0] == rook
	default:
		return false
	}
}

// pathClear checks every square strictly between from and to on a straight or
// diagonal line
func pathClear(b board.Board, from, to board.Square) bool {
	dr := sign(to.Row - from.Row)
	dc := sign(to.Col - from.Col)
	r, c := from.Row+dr, from.Col+dc
	for r != to.Row || c != to.Col {
		if !b[r][c].IsEmpty() {
			return false
		}
		r += dr
		c += dc
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
