package board

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSquare(t *testing.T) {
	tests := []struct {
		in      string
		want    Square
		wantErr bool
	}{
		{in: "a8", want: Square{Row: 0, Col: 0}},
		{in: "h1", want: Square{Row: 7, Col: 7}},
		{in: "e4", want: Square{Row: 4, Col: 4}},
		{in: "i1", wantErr: true},
		{in: "a9", wantErr: true},
		{in: "a", wantErr: true},
		{in: "a10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSquare(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSquare(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSquare(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSquare(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}

	if NoSquare.String() != "-" {
		t.Errorf("NoSquare.String() = %q, want -", NoSquare.String())
	}
}

func TestPieceCodes(t *testing.T) {
	for _, c := range []Color{White, Black} {
		for pt := Pawn; pt <= King; pt++ {
			p := Piece{Color: c, Type: pt}
			got, err := ParsePiece(p.Code())
			if err != nil {
				t.Fatalf("ParsePiece(%q) error: %v", p.Code(), err)
			}
			if got != p {
				t.Errorf("ParsePiece(%q) = %+v, want %+v", p.Code(), got, p)
			}
		}
	}

	if p, err := ParsePiece(""); err != nil || !p.IsEmpty() {
		t.Errorf(`ParsePiece("") = %+v, %v`, p, err)
	}
	for _, bad := range []string{"w", "xK", "wX", "wk", "wKK"} {
		if _, err := ParsePiece(bad); err == nil {
			t.Errorf("ParsePiece(%q) succeeded, want error", bad)
		}
	}
}

func TestGridRoundTrip(t *testing.T) {
	b := Initial()
	g := b.Grid()

	if g[0][4] != "bK" || g[7][3] != "wQ" || g[4][4] != "" {
		t.Errorf("Grid() = %v", g)
	}

	back, err := FromGrid(g)
	if err != nil {
		t.Fatalf("FromGrid() error: %v", err)
	}
	if diff := cmp.Diff(b, back); diff != "" {
		t.Errorf("FromGrid(Grid()) mismatch (-want +got):\n%s", diff)
	}

	g[3][3] = "zz"
	if _, err := FromGrid(g); err == nil {
		t.Error("FromGrid accepted an invalid code")
	}
}

func TestKingSquare(t *testing.T) {
	b := Initial()
	if sq, ok := b.KingSquare(White); !ok || sq.String() != "e1" {
		t.Errorf("KingSquare(White) = %s, %v", sq, ok)
	}

	var empty Board
	if _, ok := empty.KingSquare(Black); ok {
		t.Error("KingSquare found a king on an empty board")
	}
}

// Read accessors work on values that are not addressable, such as call
// results and fields of returned structs.
func TestReadsOnBoardValues(t *testing.T) {
	e1 := Square{Row: 7, Col: 4}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"At on call result", Initial().At(e1), Piece{Color: White, Type: King}},
		{"IsEmpty on call result", Initial().IsEmpty(Square{Row: 4, Col: 4}), true},
		{"At on state field", InitialState().Board.At(Square{Row: 0, Col: 3}), Piece{Color: Black, Type: Queen}},
		{"Grid on state field", InitialState().Board.Grid()[7][4], "wK"},
		{"ASCII on call result", strings.Count(Initial().ToASCII(), "\n"), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if sq, ok := InitialState().Board.KingSquare(Black); !ok || sq != (Square{Row: 0, Col: 4}) {
		t.Errorf("KingSquare(Black) = %s, %v", sq, ok)
	}
}

func TestToASCII(t *testing.T) {
	b := Initial()
	lines := strings.Split(b.ToASCII(), "\n")
	if len(lines) != 10 {
		t.Fatalf("ToASCII() has %d lines, want 10", len(lines))
	}
	if lines[1] != "8 r n b q k b n r  8" {
		t.Errorf("rank 8 = %q", lines[1])
	}
	if lines[5] != "4 . . . . . . . .  4" {
		t.Errorf("rank 4 = %q", lines[5])
	}
}

func TestCastlingRights(t *testing.T) {
	c := CastlingRights{WhiteQueenside: true, BlackKingside: true}
	if c.Kingside(White) || !c.Queenside(White) || !c.Kingside(Black) || c.Queenside(Black) {
		t.Errorf("rights accessors disagree with %+v", c)
	}
	if (CastlingRights{}).Any() {
		t.Error("empty rights report Any()")
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{"w": White, "white": White, "B": Black, "black": Black} {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseColor("red"); err == nil {
		t.Error("ParseColor accepted red")
	}
}
