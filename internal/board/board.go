// Package board holds the passive chess data model: pieces, squares, the 8x8 grid
// and the per-ply game state. It has no rules logic.
package board

import (
	"fmt"
	"strings"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// String returns the FEN side-to-move letter
func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Name returns the lowercase color name used in prompts
func (c Color) Name() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "w"/"b" and "white"/"black"
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return White, fmt.Errorf("invalid color: %q", s)
	}
}

// PieceType zero value means no piece
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [...]byte{0, 'P', 'N', 'B', 'R', 'Q', 'K'}

// Letter returns the uppercase piece letter, 0 for NoPieceType
func (t PieceType) Letter() byte {
	if int(t) >= len(pieceLetters) {
		return 0
	}
	return pieceLetters[t]
}

func (t PieceType) String() string {
	switch t {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// PieceTypeFromLetter is case-insensitive
func PieceTypeFromLetter(ch byte) (PieceType, bool) {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}
	for t := Pawn; t <= King; t++ {
		if pieceLetters[t] == ch {
			return t, true
		}
	}
	return NoPieceType, false
}

// Piece is an immutable value; the zero value is an empty square
type Piece struct {
	Color Color
	Type  PieceType
}

func (p Piece) IsEmpty() bool {
	return p.Type == NoPieceType
}

// Code returns the two-character interchange code, e.g. "wK", or "" when empty
func (p Piece) Code() string {
	if p.IsEmpty() {
		return ""
	}
	return p.Color.String() + string(p.Type.Letter())
}

// FENLetter returns the case-sensitive FEN letter (uppercase for white)
func (p Piece) FENLetter() byte {
	ch := p.Type.Letter()
	if p.Color == Black && ch != 0 {
		ch += 'a' - 'A'
	}
	return ch
}

// ParsePiece decodes a two-character interchange code; "" decodes to the empty piece
func ParsePiece(code string) (Piece, error) {
	if code == "" {
		return Piece{}, nil
	}
	if len(code) != 2 {
		return Piece{}, fmt.Errorf("invalid piece code: %q", code)
	}
	var p Piece
	switch code[0] {
	case 'w':
		p.Color = White
	case 'b':
		p.Color = Black
	default:
		return Piece{}, fmt.Errorf("invalid piece color in %q", code)
	}
	t, ok := PieceTypeFromLetter(code[1])
	if !ok || code[1] < 'A' || code[1] > 'Z' {
		return Piece{}, fmt.Errorf("invalid piece type in %q", code)
	}
	p.Type = t
	return p, nil
}

// Board is an 8x8 grid indexed [row][col]; row 0 is rank 8, col 0 is file a.
// It is a value type, so assignment takes a snapshot.
type Board [8][8]Piece

func (b Board) At(sq Square) Piece {
	return b[sq.Row][sq.Col]
}

func (b *Board) Set(sq Square, p Piece) {
	b[sq.Row][sq.Col] = p
}

func (b Board) IsEmpty(sq Square) bool {
	return b[sq.Row][sq.Col].IsEmpty()
}

// KingSquare finds the king of the given color
func (b Board) KingSquare(c Color) (Square, bool) {
	king := Piece{Color: c, Type: King}
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b[r][f] == king {
				return Square{Row: r, Col: f}, true
			}
		}
	}
	return NoSquare, false
}

// Initial returns the standard starting arrangement
func Initial() Board {
	var b Board
	back := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		b[0][f] = Piece{Color: Black, Type: back[f]}
		b[1][f] = Piece{Color: Black, Type: Pawn}
		b[6][f] = Piece{Color: White, Type: Pawn}
		b[7][f] = Piece{Color: White, Type: back[f]}
	}
	return b
}

// Grid returns the board in the interchange layout: each cell is "" or a code like "wK"
func (b Board) Grid() [8][8]string {
	var g [8][8]string
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			g[r][f] = b[r][f].Code()
		}
	}
	return g
}

// FromGrid builds a board from the interchange layout
func FromGrid(g [8][8]string) (Board, error) {
	var b Board
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			p, err := ParsePiece(g[r][f])
			if err != nil {
				return Board{}, fmt.Errorf("square %s: %w", Square{Row: r, Col: f}, err)
			}
			b[r][f] = p
		}
	}
	return b, nil
}

// ToASCII creates an ASCII representation of the board
func (b Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for f := 0; f < 8; f++ {
			piece := b[r][f]
			if piece.IsEmpty() {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", piece.FENLetter()))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
