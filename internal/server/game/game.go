package game

import (
	"fmt"
	"sync"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/rules"
	"llmchess/internal/server/core"
)

// Snapshot is one ply of the game: the position after Algebraic was played
type Snapshot struct {
	State      board.State
	Algebraic  string
	Coordinate string
	Status     rules.Status
}

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Coordinate string
	Algebraic  string
	Color      board.Color
	Status     rules.Status
	Captured   board.Piece
	Oracle     string // set when an oracle chose the move
	MoveNumber int    // ply number of this move, starting at 1
	FEN        string // position after the move
}

type Game struct {
	mu         sync.RWMutex
	snapshots  []Snapshot
	players    map[board.Color]*core.Player
	pending    *Pending
	lastResult *MoveResult
	oracleBusy bool
	oracleErr  string
}

func New(initial board.State, whitePlayer, blackPlayer *core.Player) *Game {
	return &Game{
		snapshots: []Snapshot{{
			State:  initial,
			Status: rules.ClassifyState(initial),
		}},
		players: map[board.Color]*core.Player{
			board.White: whitePlayer,
			board.Black: blackPlayer,
		},
	}
}

// NewFromFEN starts a game from a position
func NewFromFEN(fen string, whitePlayer, blackPlayer *core.Player) (*Game, error) {
	st, err := notation.DecodeFEN(fen)
	if err != nil {
		return nil, err
	}
	return New(st, whitePlayer, blackPlayer), nil
}

func (g *Game) current() Snapshot {
	return g.snapshots[len(g.snapshots)-1]
}

// Play applies a move for the side to move. A pawn reaching the back rank with no
// promotion piece leaves the game waiting for Promote and returns a nil result.
func (g *Game) Play(m board.Move) (*MoveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.play(m, "")
}

// PlayOracle applies a move chosen by the named oracle. A missing promotion piece
// resolves to a queen.
func (g *Game) PlayOracle(m board.Move, oracleName string) (*MoveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m.Promotion == board.NoPieceType {
		m.Promotion = board.Queen
	}
	return g.play(m, oracleName)
}

func (g *Game) play(m board.Move, oracleName string) (*MoveResult, error) {
	if g.pending != nil {
		return nil, ErrPromotionPending
	}
	cur := g.current()
	if cur.Status.Terminal() {
		return nil, ErrGameOver
	}

	ply, err := Step(cur.State, m)
	if err != nil {
		return nil, err
	}
	if ply.Pending != nil {
		g.pending = ply.Pending
		return nil, nil
	}
	return g.commit(ply, cur.State.Turn, oracleName), nil
}

// Promote completes a pending promotion
func (g *Game) Promote(t board.PieceType) (*MoveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return nil, ErrNoPromotionPending
	}
	ply, err := Resolve(*g.pending, t)
	if err != nil {
		return nil, err
	}
	mover := g.pending.Before.Turn
	g.pending = nil
	return g.commit(ply, mover, ""), nil
}

func (g *Game) commit(ply Ply, mover board.Color, oracleName string) *MoveResult {
	g.snapshots = append(g.snapshots, Snapshot{
		State:      ply.State,
		Algebraic:  ply.Algebraic,
		Coordinate: ply.Coordinate,
		Status:     ply.Status,
	})
	g.lastResult = &MoveResult{
		Coordinate: ply.Coordinate,
		Algebraic:  ply.Algebraic,
		Color:      mover,
		Status:     ply.Status,
		Captured:   ply.Captured,
		Oracle:     oracleName,
		MoveNumber: len(g.snapshots) - 1,
		FEN:        notation.EncodeFEN(ply.State),
	}
	g.oracleErr = ""
	result := *g.lastResult
	return &result
}

// PendingPromotion returns the square awaiting a piece choice
func (g *Game) PendingPromotion() (board.Square, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.pending == nil {
		return board.NoSquare, false
	}
	return g.pending.Square(), true
}

// CancelPromotion drops a pending promotion and restores the prior position
func (g *Game) CancelPromotion() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}

// UndoMoves takes back count plies. A pawn move waiting for its promotion piece
// counts as one.
func (g *Game) UndoMoves(count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}
	if g.oracleBusy {
		return ErrOracleBusy
	}

	// A pending promotion is the first step taken back
	plies := count
	if g.pending != nil {
		plies--
	}
	availableMoves := len(g.snapshots) - 1
	if availableMoves < plies {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, availableMoves)
	}

	g.snapshots = g.snapshots[:len(g.snapshots)-plies]
	g.pending = nil
	g.lastResult = nil
	g.oracleErr = ""
	return nil
}

// State returns the current position; while a promotion is pending it is the interim board
func (g *Game) State() board.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := g.current().State
	if g.pending != nil {
		st.Board = g.pending.Applied.Board
	}
	return st
}

func (g *Game) Status() rules.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current().Status
}

func (g *Game) Turn() board.Color {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current().State.Turn
}

// LegalMoves lists the legal moves of the side to move; none while a promotion is pending
func (g *Game) LegalMoves() []board.Move {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.pending != nil {
		return nil
	}
	st := g.current().State
	return rules.LegalMoves(st.Board, st.Turn, st.Castling, st.EnPassant)
}

// LegalTargets lists where the piece on from may move; only pieces of the side to move qualify
func (g *Game) LegalTargets(from board.Square) []board.Square {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.pending != nil || !from.Valid() {
		return nil
	}
	st := g.current().State
	if p := st.Board.At(from); p.IsEmpty() || p.Color != st.Turn {
		return nil
	}
	return rules.LegalTargets(st.Board, from, st.Castling, st.EnPassant)
}

func (g *Game) CurrentFEN() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return notation.EncodeFEN(g.current().State)
}

func (g *Game) InitialFEN() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return notation.EncodeFEN(g.snapshots[0].State)
}

// Moves returns the algebraic history
func (g *Game) Moves() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	moves := make([]string, 0, len(g.snapshots)-1)
	for _, s := range g.snapshots[1:] {
		moves = append(moves, s.Algebraic)
	}
	return moves
}

// Coordinates returns the history as coordinate moves
func (g *Game) Coordinates() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	moves := make([]string, 0, len(g.snapshots)-1)
	for _, s := range g.snapshots[1:] {
		moves = append(moves, s.Coordinate)
	}
	return moves
}

func (g *Game) Transcript() string {
	return notation.Transcript(g.Moves())
}

// MoveCount is the number of plies played
func (g *Game) MoveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.snapshots) - 1
}

func (g *Game) LastResult() *MoveResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lastResult == nil {
		return nil
	}
	result := *g.lastResult
	return &result
}

func (g *Game) GetPlayer(color board.Color) *core.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[color]
}

// NextPlayer is the player whose turn it is
func (g *Game) NextPlayer() *core.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[g.current().State.Turn]
}

func (g *Game) UpdatePlayers(whitePlayer, blackPlayer *core.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players[board.White] = whitePlayer
	g.players[board.Black] = blackPlayer
}

// BeginOracle marks an oracle move in progress; only one may run per game
func (g *Game) BeginOracle() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.oracleBusy {
		return ErrOracleBusy
	}
	if g.pending != nil {
		return ErrPromotionPending
	}
	if g.current().Status.Terminal() {
		return ErrGameOver
	}
	g.oracleBusy = true
	g.oracleErr = ""
	return nil
}

// EndOracle clears the in-progress flag and records a failure, if any
func (g *Game) EndOracle(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.oracleBusy = false
	if err != nil {
		g.oracleErr = err.Error()
	}
}

func (g *Game) OraclePending() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.oracleBusy
}

// OracleError is the last oracle failure, cleared by the next applied move
func (g *Game) OracleError() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.oracleErr
}
