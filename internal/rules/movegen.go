package rules

import "llmchess/internal/board"

// IsInCheck reports whether the king of color is attacked by any opposing piece.
// A board without that king reports false.
func IsInCheck(b board.Board, color board.Color) bool {
	king, ok := b.KingSquare(color)
	if !ok {
		return false
	}

	// No castling rights and no en-passant target: neither can capture a king
	var none board.CastlingRights
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() || p.Color == color {
				continue
			}
			if IsLegalGeometry(b, board.Square{Row: r, Col: c}, king, none, board.NoSquare) {
				return true
			}
		}
	}
	return false
}

// LegalMoves enumerates every move of color that passes geometry and does not leave
// the mover's king in check. The check test uses a plain relocation of the piece,
// so en-passant captures and castling rook moves are not replayed. Order carries no
// meaning. Promotion moves are returned once, without a promotion piece.
func LegalMoves(b board.Board, color board.Color, rights board.CastlingRights, ep board.Square) []board.Move {
	var moves []board.Move
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() || p.Color != color {
				continue
			}
			from := board.Square{Row: r, Col: c}
			for _, to := range targets(b, from, color, rights, ep) {
				moves = append(moves, board.Move{From: from, To: to})
			}
		}
	}
	return moves
}

// LegalTargets returns the destinations the piece on from may legally reach. Used by
// renderers to highlight squares after a selection.
func LegalTargets(b board.Board, from board.Square, rights board.CastlingRights, ep board.Square) []board.Square {
	if !from.Valid() {
		return nil
	}
	p := b.At(from)
	if p.IsEmpty() {
		return nil
	}
	return targets(b, from, p.Color, rights, ep)
}

// IsLegal reports whether m is in the legal move set of the piece on m.From.
// The promotion piece is not considered.
func IsLegal(b board.Board, m board.Move, rights board.CastlingRights, ep board.Square) bool {
	if !m.From.Valid() || !m.To.Valid() {
		return false
	}
	p := b.At(m.From)
	if p.IsEmpty() {
		return false
	}
	if !IsLegalGeometry(b, m.From, m.To, rights, ep) {
		return false
	}
	return !leavesKingInCheck(b, m.From, m.To, p.Color)
}

func targets(b board.Board, from board.Square, color board.Color, rights board.CastlingRights, ep board.Square) []board.Square {
	var out []board.Square
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			to := board.Square{Row: r, Col: c}
			if !IsLegalGeometry(b, from, to, rights, ep) {
				continue
			}
			if leavesKingInCheck(b, from, to, color) {
				continue
			}
			out = append(out, to)
		}
	}
	return out
}

// leavesKingInCheck relocates the piece on a scratch copy and tests the mover's king
func leavesKingInCheck(b board.Board, from, to board.Square, color board.Color) bool {
	scratch := b
	scratch.Set(to, scratch.At(from))
	scratch.Set(from, board.Piece{})
	return IsInCheck(scratch, color)
}
