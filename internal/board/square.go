package board

import "fmt"

// Square addresses the grid; row 0 is rank 8, col 0 is file a
type Square struct {
	Row int
	Col int
}

// NoSquare marks an absent square (e.g. no en-passant target)
var NoSquare = Square{Row: -1, Col: -1}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

func (s Square) File() byte {
	return byte('a' + s.Col)
}

func (s Square) Rank() byte {
	return byte('8' - s.Row)
}

// String returns file+rank, e.g. "e4", or "-" for an invalid square
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{s.File(), s.Rank()})
}

// ParseSquare decodes file+rank, e.g. "e4"
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q: want 2 characters", s)
	}
	if s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q: out of range", s)
	}
	return Square{Row: int('8' - s[1]), Col: int(s[0] - 'a')}, nil
}

// Move is a request to relocate a piece; it becomes history only once applied
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// CastlingRights never turn back on once cleared during play
type CastlingRights struct {
	WhiteKingside  bool
	WhiteQueenside bool
	BlackKingside  bool
	BlackQueenside bool
}

func AllCastlingRights() CastlingRights {
	return CastlingRights{
		WhiteKingside:  true,
		WhiteQueenside: true,
		BlackKingside:  true,
		BlackQueenside: true,
	}
}

func (c CastlingRights) Kingside(color Color) bool {
	if color == White {
		return c.WhiteKingside
	}
	return c.BlackKingside
}

func (c CastlingRights) Queenside(color Color) bool {
	if color == White {
		return c.WhiteQueenside
	}
	return c.BlackQueenside
}

func (c CastlingRights) Any() bool {
	return c.WhiteKingside || c.WhiteQueenside || c.BlackKingside || c.BlackQueenside
}

// State is one immutable position per ply
type State struct {
	Board     Board
	Turn      Color
	Castling  CastlingRights
	EnPassant Square
	HalfMove  int
	FullMove  int
}

// InitialState is the standard starting position with White to move
func InitialState() State {
	return State{
		Board:     Initial(),
		Turn:      White,
		Castling:  AllCastlingRights(),
		EnPassant: NoSquare,
		HalfMove:  0,
		FullMove:  1,
	}
}

// HomeRow returns the back rank row of a color
func HomeRow(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// PawnDirection is the row delta of a forward pawn step
func PawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}
