package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/oracle"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
)

func sq(t *testing.T, s string) board.Square {
	t.Helper()
	square, err := board.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return square
}

type stubOracle struct {
	move string
	err  error
	seen []oracle.Request
}

func (o *stubOracle) Name() string { return "stub" }

func (o *stubOracle) SuggestMove(_ context.Context, req oracle.Request) (string, error) {
	o.seen = append(o.seen, req)
	return o.move, o.err
}

func newSession(t *testing.T, o oracle.Oracle, fen string, white, black core.PlayerType) *Session {
	t.Helper()
	s := NewSession(o, time.Second, 0)
	st := board.InitialState()
	if fen != "" {
		var err error
		if st, err = notation.DecodeFEN(fen); err != nil {
			t.Fatalf("DecodeFEN: %v", err)
		}
	}
	if err := s.Start(st, white, black); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"", Command{Type: CmdNone}},
		{"e2e4", Command{Type: CmdMove, Args: []string{"e2e4"}}},
		{"E7E8Q", Command{Type: CmdMove, Args: []string{"e7e8q"}}},
		{"select e2", Command{Type: CmdSelect, Args: []string{"e2"}}},
		{"click 6 4", Command{Type: CmdClick, Args: []string{"6", "4"}}},
		{"promote n", Command{Type: CmdPromote, Args: []string{"n"}}},
		{"undo 2", Command{Type: CmdUndo, Args: []string{"2"}}},
		{"new human oracle", Command{Type: CmdNew, Args: []string{"human", "oracle"}}},
		{"resume 8/8/8/8/8/8/8/K6k w - - 0 1", Command{Type: CmdResume, Args: []string{"8/8/8/8/8/8/8/K6k", "w", "-", "-", "0", "1"}, Raw: "resume 8/8/8/8/8/8/8/K6k w - - 0 1"}},
		{"?", Command{Type: CmdHelp}},
		{"exit", Command{Type: CmdQuit}},
	}

	for _, tt := range tests {
		got := parseCommand(tt.input)
		if diff := cmp.Diff(tt.want, *got); diff != "" {
			t.Errorf("parseCommand(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestDisplayBoardMarks(t *testing.T) {
	var out bytes.Buffer
	view := New(&out, ThemeOff)

	b := board.Initial()
	view.DisplayBoard(b, Marks{
		Selected: sq(t, "g1"),
		Targets:  []board.Square{sq(t, "f3"), sq(t, "h3")},
	})

	lines := strings.Split(out.String(), "\n")
	want := map[int]string{
		1: "   a  b  c  d  e  f  g  h",
		2: "8  r  n  b  q  k  b  n  r  8",
		7: "3  .  .  .  .  .  *  .  *  3",
		9: "1  R  N  B  Q  K  B [N] R  1",
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("line %d = %q, want %q", i, lines[i], line)
		}
	}
}

func TestThemes(t *testing.T) {
	var out bytes.Buffer
	view := New(&out, "neon")
	if view.theme != ThemeOff {
		t.Errorf("unknown theme kept: %s", view.theme)
	}
	if err := view.SetTheme("neon"); err == nil {
		t.Error("SetTheme accepted an unknown theme")
	}
	if err := view.SetTheme(ThemeGreen); err != nil {
		t.Fatal(err)
	}
	view.DisplayBoard(board.Initial(), NoMarks())
	if !strings.Contains(out.String(), themes[ThemeGreen].lightBg) {
		t.Error("green theme colours missing")
	}
}

func TestClickSelectsAndMoves(t *testing.T) {
	s := newSession(t, nil, "", core.PlayerHuman, core.PlayerHuman)

	// Opponent piece and empty square select nothing
	for _, name := range []string{"e7", "e4"} {
		if res, err := s.Click(sq(t, name)); res != nil || err != nil {
			t.Fatalf("Click(%s) = %v, %v", name, res, err)
		}
		if s.selected.Valid() {
			t.Fatalf("Click(%s) selected a square", name)
		}
	}

	s.Click(sq(t, "g1"))
	if diff := cmp.Diff([]board.Square{sq(t, "f3"), sq(t, "h3")}, s.Marks().Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}

	// Another own piece moves the selection
	s.Click(sq(t, "e2"))
	if s.selected != sq(t, "e2") || len(s.targets) != 2 {
		t.Fatalf("selection = %v targets %v", s.selected, s.targets)
	}

	// A non-target clears it without moving
	if res, _ := s.Click(sq(t, "e5")); res != nil || s.selected.Valid() {
		t.Fatalf("illegal target: result %v selected %v", res, s.selected)
	}

	s.Click(sq(t, "e2"))
	res, err := s.Click(sq(t, "e4"))
	if err != nil || res == nil || res.Algebraic != "e4" {
		t.Fatalf("Click(e4) = %+v, %v", res, err)
	}
	marks := s.Marks()
	if marks.Selected.Valid() || len(marks.Targets) != 0 {
		t.Errorf("selection survived the move: %+v", marks)
	}
	if diff := cmp.Diff([]board.Square{sq(t, "e2"), sq(t, "e4")}, marks.Last); diff != "" {
		t.Errorf("last move marks mismatch (-want +got):\n%s", diff)
	}
}

func TestClickRowCol(t *testing.T) {
	s := newSession(t, nil, "", core.PlayerHuman, core.PlayerHuman)
	s.ClickRowCol(6, 4) // e2
	res, err := s.ClickRowCol(4, 4)
	if err != nil || res == nil || res.Coordinate != "e2e4" {
		t.Fatalf("ClickRowCol = %+v, %v", res, err)
	}
	if _, err := s.ClickRowCol(8, 0); !errors.Is(err, notation.ErrMalformed) {
		t.Errorf("off-board click error = %v", err)
	}
}

func TestClickPromotion(t *testing.T) {
	s := newSession(t, nil, "7k/P7/8/8/8/8/8/K7 w - - 0 1", core.PlayerHuman, core.PlayerHuman)
	s.Click(sq(t, "a7"))
	res, err := s.Click(sq(t, "a8"))
	if res != nil || err != nil {
		t.Fatalf("promotion click = %v, %v", res, err)
	}
	if _, err := s.Click(sq(t, "a1")); !errors.Is(err, game.ErrPromotionPending) {
		t.Errorf("click while pending: %v", err)
	}
	if _, err := s.Promote("k"); !errors.Is(err, notation.ErrMalformed) {
		t.Errorf("promote to king: %v", err)
	}

	if err := s.CancelPromotion(); err != nil {
		t.Fatal(err)
	}
	if p := s.Game().State().Board.At(sq(t, "a7")); p.Type != board.Pawn {
		t.Errorf("a7 after cancel = %v", p)
	}
	if err := s.CancelPromotion(); !errors.Is(err, game.ErrNoPromotionPending) {
		t.Errorf("second cancel: %v", err)
	}

	s.Click(sq(t, "a7"))
	s.Click(sq(t, "a8"))
	res, err = s.Promote("q")
	if err != nil || res.Algebraic != "a8=Q" {
		t.Fatalf("Promote = %+v, %v", res, err)
	}
}

func TestOracleSession(t *testing.T) {
	o := &stubOracle{move: "e7e5"}
	s := newSession(t, o, "", core.PlayerHuman, core.PlayerOracle)

	if _, err := s.Move("e2e4"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Click(sq(t, "e7")); err == nil {
		t.Error("human clicked on the oracle's turn")
	}

	res, err := s.OracleMove(context.Background())
	if err != nil || res.Oracle != "stub" || res.Algebraic != "e5" {
		t.Fatalf("OracleMove = %+v, %v", res, err)
	}
	if len(o.seen) != 1 || o.seen[0].Turn != "black" {
		t.Errorf("requests = %+v", o.seen)
	}

	// Failures leave the game unchanged and record the error
	fen := s.Game().CurrentFEN()
	o.move, o.err = "", errors.New("provider down")
	if _, err := s.OracleMove(context.Background()); err == nil {
		t.Fatal("expected oracle failure")
	}
	o.move, o.err = "a1a8", nil
	if _, err := s.OracleMove(context.Background()); err == nil {
		t.Fatal("illegal oracle move accepted")
	}
	if s.Game().CurrentFEN() != fen || s.Game().OraclePending() || s.Game().OracleError() == "" {
		t.Errorf("after failures: FEN %s pending %v error %q", s.Game().CurrentFEN(), s.Game().OraclePending(), s.Game().OracleError())
	}
}

func TestHint(t *testing.T) {
	o := &stubOracle{move: "g1f3"}
	s := newSession(t, o, "", core.PlayerHuman, core.PlayerHuman)

	hint, err := s.Hint(context.Background())
	if err != nil || hint != "Nf3" {
		t.Fatalf("Hint = %q, %v", hint, err)
	}
	if !o.seen[0].Hint {
		t.Error("hint request not marked")
	}
	if diff := cmp.Diff([]board.Square{sq(t, "g1"), sq(t, "f3")}, s.Marks().Hint); diff != "" {
		t.Errorf("hint marks mismatch (-want +got):\n%s", diff)
	}
	if s.Game().MoveCount() != 0 {
		t.Error("hint played a move")
	}

	o.move = "e7e5"
	if _, err := s.Hint(context.Background()); err == nil {
		t.Error("hint for the wrong side accepted")
	}

	if _, err := NewSession(nil, time.Second, 0).Hint(context.Background()); !errors.Is(err, ErrNoGame) {
		t.Errorf("hint without game: %v", err)
	}
}

func TestStartNeedsOracle(t *testing.T) {
	s := NewSession(nil, time.Second, 0)
	if err := s.Start(board.InitialState(), core.PlayerHuman, core.PlayerOracle); !errors.Is(err, ErrNoOracle) {
		t.Errorf("Start = %v, want ErrNoOracle", err)
	}
}

// scriptReader feeds lines to Handler.Run
type scriptReader struct {
	lines   []string
	prompts []string
}

func (r *scriptReader) SetPrompt(p string) { r.prompts = append(r.prompts, p) }

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestHandlerScript(t *testing.T) {
	var out bytes.Buffer
	o := &stubOracle{move: "e7e5"}
	h := NewHandler(context.Background(), NewSession(o, time.Second, 0), New(&out, ThemeOff))

	in := &scriptReader{lines: []string{
		"new human oracle",
		"e2e4",
		"",
		"fen",
		"undo 2",
		"history",
		"undo x",
		"f2f3",
		"quit",
		"never read",
	}}
	h.Run(in)

	text := out.String()
	for _, want := range []string{
		"New game: White human, Black oracle",
		"White: e4",
		"Black (stub): e5",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"2 moves undone",
		"Current FEN: rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"Invalid undo count",
		"White: f3",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if len(in.lines) != 1 {
		t.Errorf("quit did not stop the loop: %v", in.lines)
	}
	if in.prompts[2] != "ENTER for oracle move [b]> " {
		t.Errorf("oracle turn prompt = %q", in.prompts[2])
	}
}
