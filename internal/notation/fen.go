// Package notation converts positions and moves to and from FEN, algebraic and
// coordinate notation.
package notation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"llmchess/internal/board"
)

// ErrMalformed is wrapped by every decoding failure
var ErrMalformed = errors.New("malformed notation")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// EncodeFEN renders the six FEN fields of a state
func EncodeFEN(st board.State) string {
	var sb strings.Builder
	sb.WriteString(PlacementField(st.Board))
	sb.WriteByte(' ')
	sb.WriteString(st.Turn.String())
	sb.WriteByte(' ')
	sb.WriteString(encodeCastling(st.Castling))
	sb.WriteByte(' ')
	sb.WriteString(st.EnPassant.String())
	fmt.Fprintf(&sb, " %d %d", st.HalfMove, st.FullMove)

	return sb.String()
}

// PlacementField returns only the piece placement field
func PlacementField(b board.Board) string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for f := 0; f < 8; f++ {
			p := b[r][f]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.FENLetter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

func encodeCastling(c board.CastlingRights) string {
	var s string
	if c.WhiteKingside {
		s += "K"
	}
	if c.WhiteQueenside {
		s += "Q"
	}
	if c.BlackKingside {
		s += "k"
	}
	if c.BlackQueenside {
		s += "q"
	}
	if s == "" {
		return "-"
	}
	return s
}

// DecodeFEN parses a six-field FEN string
func DecodeFEN(fen string) (board.State, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return board.State{}, malformed("FEN: expected 6 fields, got %d", len(parts))
	}

	var st board.State

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return board.State{}, malformed("FEN: expected 8 ranks, got %d", len(ranks))
	}
	for r := 0; r < 8; r++ {
		file := 0
		for i := 0; i < len(ranks[r]); i++ {
			ch := ranks[r][i]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			t, ok := board.PieceTypeFromLetter(ch)
			if !ok {
				return board.State{}, malformed("FEN: invalid piece %q in rank %d", ch, 8-r)
			}
			if file >= 8 {
				return board.State{}, malformed("FEN: too many pieces in rank %d", 8-r)
			}
			color := board.White
			if ch >= 'a' && ch <= 'z' {
				color = board.Black
			}
			st.Board[r][file] = board.Piece{Color: color, Type: t}
			file++
		}
		if file != 8 {
			return board.State{}, malformed("FEN: rank %d has %d files", 8-r, file)
		}
	}

	switch parts[1] {
	case "w":
		st.Turn = board.White
	case "b":
		st.Turn = board.Black
	default:
		return board.State{}, malformed("FEN: turn must be 'w' or 'b'")
	}

	castling, err := decodeCastling(parts[2])
	if err != nil {
		return board.State{}, err
	}
	st.Castling = castling

	st.EnPassant = board.NoSquare
	if parts[3] != "-" {
		sq, err := board.ParseSquare(parts[3])
		if err != nil || (sq.Row != 2 && sq.Row != 5) {
			return board.State{}, malformed("FEN: invalid en passant square %q", parts[3])
		}
		st.EnPassant = sq
	}

	if st.HalfMove, err = strconv.Atoi(parts[4]); err != nil || st.HalfMove < 0 {
		return board.State{}, malformed("FEN: halfmove counter %q", parts[4])
	}
	if st.FullMove, err = strconv.Atoi(parts[5]); err != nil || st.FullMove < 1 {
		return board.State{}, malformed("FEN: fullmove counter %q", parts[5])
	}

	return st, nil
}

func decodeCastling(s string) (board.CastlingRights, error) {
	var c board.CastlingRights
	if s == "-" {
		return c, nil
	}
	for i := 0; i < len(s); i++ {
		var flag *bool
		switch s[i] {
		case 'K':
			flag = &c.WhiteKingside
		case 'Q':
			flag = &c.WhiteQueenside
		case 'k':
			flag = &c.BlackKingside
		case 'q':
			flag = &c.BlackQueenside
		default:
			return c, malformed("FEN: invalid castling field %q", s)
		}
		if *flag {
			return c, malformed("FEN: repeated castling flag in %q", s)
		}
		*flag = true
	}
	return c, nil
}
