package notation

import (
	"fmt"
	"strings"

	"llmchess/internal/board"
)

// Algebraic encodes a move against the position it is played from. Castling is
// O-O / O-O-O; pawn captures carry the origin file; promotions carry =<Letter>.
// There is no disambiguation and no check or mate suffix.
func Algebraic(b board.Board, m board.Move) string {
	piece := b.At(m.From)
	if piece.IsEmpty() {
		return ""
	}

	if piece.Type == board.King && abs(m.To.Col-m.From.Col) == 2 {
		if m.To.Col > m.From.Col {
			return "O-O"
		}
		return "O-O-O"
	}

	var sb strings.Builder
	if piece.Type != board.Pawn {
		sb.WriteByte(piece.Type.Letter())
	}

	capture := !b.IsEmpty(m.To)
	// A pawn changing file onto an empty square is an en passant capture
	if piece.Type == board.Pawn && m.From.Col != m.To.Col {
		capture = true
	}
	if capture {
		if piece.Type == board.Pawn {
			sb.WriteByte(m.From.File())
		}
		sb.WriteByte('x')
	}

	sb.WriteString(m.To.String())

	if m.Promotion != board.NoPieceType {
		sb.WriteByte('=')
		sb.WriteByte(m.Promotion.Letter())
	}
	return sb.String()
}

// EncodeCoordinate renders <fromFile><fromRank><toFile><toRank>, e.g. e2e4
func EncodeCoordinate(m board.Move) string {
	return m.From.String() + m.To.String()
}

// DecodeCoordinate parses exactly four characters [a-h][1-8][a-h][1-8]
func DecodeCoordinate(s string) (board.Move, error) {
	if len(s) != 4 {
		return board.Move{}, malformed("coordinate %q: want 4 characters, got %d", s, len(s))
	}
	from, err := board.ParseSquare(s[:2])
	if err != nil {
		return board.Move{}, malformed("coordinate %q: %v", s, err)
	}
	to, err := board.ParseSquare(s[2:])
	if err != nil {
		return board.Move{}, malformed("coordinate %q: %v", s, err)
	}
	return board.Move{From: from, To: to}, nil
}

// DecodeCoordinatePromotion accepts a coordinate move optionally followed by a
// promotion letter (q, r, b or n), e.g. e7e8q
func DecodeCoordinatePromotion(s string) (board.Move, error) {
	if len(s) != 5 {
		return DecodeCoordinate(s)
	}
	m, err := DecodeCoordinate(s[:4])
	if err != nil {
		return board.Move{}, err
	}
	t, err := DecodePromotion(s[4:])
	if err != nil {
		return board.Move{}, err
	}
	m.Promotion = t
	return m, nil
}

// DecodePromotion parses a promotion piece letter (case-insensitive)
func DecodePromotion(s string) (board.PieceType, error) {
	if len(s) != 1 {
		return board.NoPieceType, malformed("promotion %q: want one letter", s)
	}
	t, ok := board.PieceTypeFromLetter(s[0])
	if !ok || t == board.Pawn || t == board.King {
		return board.NoPieceType, malformed("promotion %q: want one of q, r, b, n", s)
	}
	return t, nil
}

// Transcript numbers an algebraic history pairwise: "1. e4 e5 2. Nf3"
func Transcript(history []string) string {
	var sb strings.Builder
	for i := 0; i < len(history); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d. %s", i/2+1, history[i])
		if i+1 < len(history) {
			sb.WriteByte(' ')
			sb.WriteString(history[i+1])
		}
	}
	return sb.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
