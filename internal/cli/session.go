package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/oracle"
	"llmchess/internal/rules"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
)

var (
	ErrNoGame   = errors.New("no active game, use 'new' or 'resume <FEN>'")
	ErrNoOracle = errors.New("no oracle configured")
)

// Session is one local game plus the selection state of the board display
type Session struct {
	game     *game.Game
	oracle   oracle.Oracle
	timeout  time.Duration
	delay    time.Duration
	selected board.Square
	targets  []board.Square
	hint     *board.Move
}

// NewSession creates a session without a game; o may be nil
func NewSession(o oracle.Oracle, timeout, delay time.Duration) *Session {
	return &Session{
		oracle:   o,
		timeout:  timeout,
		delay:    delay,
		selected: board.NoSquare,
	}
}

func (s *Session) OracleName() string {
	if s.oracle == nil {
		return ""
	}
	return s.oracle.Name()
}

// Start begins a game from initial; an oracle player needs a configured oracle
func (s *Session) Start(initial board.State, white, black core.PlayerType) error {
	if s.oracle == nil && (white == core.PlayerOracle || black == core.PlayerOracle) {
		return ErrNoOracle
	}
	s.game = game.New(initial,
		core.NewPlayer(core.PlayerConfig{Type: white}, board.White, s.OracleName()),
		core.NewPlayer(core.PlayerConfig{Type: black}, board.Black, s.OracleName()))
	s.clearSelection()
	return nil
}

func (s *Session) Game() *game.Game {
	return s.game
}

func (s *Session) clearSelection() {
	s.selected = board.NoSquare
	s.targets = nil
	s.hint = nil
}

// Marks returns the squares to emphasise on the board
func (s *Session) Marks() Marks {
	marks := Marks{Selected: s.selected, Targets: s.targets}
	if s.hint != nil {
		marks.Hint = []board.Square{s.hint.From, s.hint.To}
	}
	if s.game != nil {
		if last := s.game.LastResult(); last != nil {
			if m, err := notation.DecodeCoordinatePromotion(last.Coordinate); err == nil {
				marks.Last = []board.Square{m.From, m.To}
			}
		}
	}
	return marks
}

// humanTurn reports whether a human may act on the board now
func (s *Session) humanTurn() error {
	if s.game == nil {
		return ErrNoGame
	}
	if s.game.Status().Terminal() {
		return game.ErrGameOver
	}
	if s.game.NextPlayer().IsOracle() {
		return errors.New("it is the oracle's turn, press ENTER or type 'oracle'")
	}
	return nil
}

// Click handles a click on sq. With nothing selected, a piece of the side to move
// is selected and its legal targets highlighted. With a selection, clicking another
// own piece moves the selection, clicking a legal target plays the move and any
// other click clears the selection. A nil result with a nil error means nothing
// was played.
func (s *Session) Click(sq board.Square) (*game.MoveResult, error) {
	if err := s.humanTurn(); err != nil {
		return nil, err
	}
	if _, pending := s.game.PendingPromotion(); pending {
		return nil, game.ErrPromotionPending
	}
	s.hint = nil

	st := s.game.State()
	clicked := st.Board.At(sq)
	ownPiece := !clicked.IsEmpty() && clicked.Color == st.Turn

	if !s.selected.Valid() || (ownPiece && sq != s.selected) {
		if ownPiece {
			s.selected = sq
			s.targets = s.game.LegalTargets(sq)
		}
		return nil, nil
	}

	from := s.selected
	legal := slices.Contains(s.targets, sq)
	s.clearSelection()
	if !legal {
		return nil, nil
	}
	return s.game.Play(board.Move{From: from, To: sq})
}

// ClickRowCol is Click in renderer coordinates
func (s *Session) ClickRowCol(row, col int) (*game.MoveResult, error) {
	sq := board.Square{Row: row, Col: col}
	if !sq.Valid() {
		return nil, fmt.Errorf("%w: row and col must be 0-7", notation.ErrMalformed)
	}
	return s.Click(sq)
}

// Move plays a coordinate move such as e2e4 or e7e8q
func (s *Session) Move(coord string) (*game.MoveResult, error) {
	if err := s.humanTurn(); err != nil {
		return nil, err
	}
	m, err := notation.DecodeCoordinatePromotion(coord)
	if err != nil {
		return nil, err
	}
	s.clearSelection()
	return s.game.Play(m)
}

func (s *Session) Promote(piece string) (*game.MoveResult, error) {
	if s.game == nil {
		return nil, ErrNoGame
	}
	t, err := notation.DecodePromotion(piece)
	if err != nil {
		return nil, err
	}
	return s.game.Promote(t)
}

// CancelPromotion takes back the pawn move waiting for a piece choice
func (s *Session) CancelPromotion() error {
	if s.game == nil {
		return ErrNoGame
	}
	if _, pending := s.game.PendingPromotion(); !pending {
		return game.ErrNoPromotionPending
	}
	s.game.CancelPromotion()
	return nil
}

func (s *Session) Undo(count int) error {
	if s.game == nil {
		return ErrNoGame
	}
	s.clearSelection()
	return s.game.UndoMoves(count)
}

func (s *Session) request() oracle.Request {
	return oracle.Request{
		FEN:     s.game.CurrentFEN(),
		Turn:    s.game.Turn().Name(),
		History: s.game.Moves(),
	}
}

// OracleMove asks the oracle for the side to move and plays its answer.
// Any failure leaves the game unchanged.
func (s *Session) OracleMove(ctx context.Context) (*game.MoveResult, error) {
	if s.game == nil {
		return nil, ErrNoGame
	}
	if s.oracle == nil {
		return nil, ErrNoOracle
	}
	if err := s.game.BeginOracle(); err != nil {
		return nil, err
	}

	result, err := s.oracleMove(ctx)
	s.game.EndOracle(err)
	if err == nil {
		s.clearSelection()
	}
	return result, err
}

func (s *Session) oracleMove(ctx context.Context) (*game.MoveResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	suggestion, err := s.oracle.SuggestMove(ctx, s.request())
	if err != nil {
		return nil, err
	}
	m, err := notation.DecodeCoordinatePromotion(suggestion)
	if err != nil {
		return nil, &oracle.Error{Oracle: s.oracle.Name(), Err: err}
	}

	result, err := s.game.PlayOracle(m, s.oracle.Name())
	if err != nil {
		return nil, &oracle.Error{Oracle: s.oracle.Name(), Err: fmt.Errorf("move %s: %w", suggestion, err)}
	}
	return result, nil
}

// Hint asks the oracle for a move for the human to move and highlights it
func (s *Session) Hint(ctx context.Context) (string, error) {
	if err := s.humanTurn(); err != nil {
		return "", err
	}
	if s.oracle == nil {
		return "", ErrNoOracle
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := s.request()
	req.Hint = true
	suggestion, err := s.oracle.SuggestMove(ctx, req)
	if err != nil {
		return "", err
	}
	m, err := notation.DecodeCoordinatePromotion(suggestion)
	if err != nil {
		return "", err
	}
	st := s.game.State()
	if st.Board.At(m.From).Color != st.Turn || !rules.IsLegal(st.Board, m, st.Castling, st.EnPassant) {
		return "", fmt.Errorf("oracle suggested illegal move %s", suggestion)
	}

	s.clearSelection()
	s.hint = &m
	return notation.Algebraic(st.Board, m), nil
}
