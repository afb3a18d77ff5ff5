package game

import (
	"errors"
	"strings"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/rules"
)

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrPromotionPending   = errors.New("promotion choice pending")
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrGameOver           = errors.New("game is over")
	ErrOracleBusy         = errors.New("oracle move in progress")
)

// Pending is a pawn move that reached the back rank and still needs a piece.
// Before is the position the move was played from.
type Pending struct {
	Before  board.State
	Move    board.Move
	Applied rules.Applied
}

// Square is where the pawn waits for promotion
func (p *Pending) Square() board.Square {
	return p.Move.To
}

// Ply is the result of one transition. When Pending is set, State holds the
// interim board and the turn, clocks and history have not advanced.
type Ply struct {
	State      board.State
	Algebraic  string
	Coordinate string
	Status     rules.Status
	Captured   board.Piece
	Pending    *Pending
}

// Step plays m from st. A move outside the legal set fails with ErrIllegalMove.
// A pawn reaching the back rank without m.Promotion yields a pending ply.
func Step(st board.State, m board.Move) (Ply, error) {
	if !m.From.Valid() || st.Board.At(m.From).Color != st.Turn {
		return Ply{}, ErrIllegalMove
	}
	if !rules.IsLegal(st.Board, m, st.Castling, st.EnPassant) {
		return Ply{}, ErrIllegalMove
	}

	applied := rules.Apply(st.Board, m.From, m.To, st.Castling, st.EnPassant)
	if !applied.PromotionPending {
		m.Promotion = board.NoPieceType
		return finish(st, m, applied), nil
	}

	if m.Promotion == board.NoPieceType {
		interim := st
		interim.Board = applied.Board
		return Ply{
			State:    interim,
			Status:   rules.Ongoing,
			Captured: applied.Captured,
			Pending:  &Pending{Before: st, Move: m, Applied: applied},
		}, nil
	}

	return Resolve(Pending{Before: st, Move: m, Applied: applied}, m.Promotion)
}

// Resolve completes a pending promotion with the chosen piece type
func Resolve(p Pending, t board.PieceType) (Ply, error) {
	promoted, err := rules.Promote(p.Applied.Board, p.Move.To, t)
	if err != nil {
		return Ply{}, err
	}
	applied := p.Applied
	applied.Board = promoted
	applied.PromotionPending = false

	m := p.Move
	m.Promotion = t
	return finish(p.Before, m, applied), nil
}

// finish advances turn and clocks and records the move
func finish(before board.State, m board.Move, applied rules.Applied) Ply {
	mover := before.Board.At(m.From)

	next := board.State{
		Board:     applied.Board,
		Turn:      before.Turn.Opposite(),
		Castling:  applied.Castling,
		EnPassant: applied.EnPassant,
		HalfMove:  before.HalfMove + 1,
		FullMove:  before.FullMove,
	}
	if mover.Type == board.Pawn || !applied.Captured.IsEmpty() {
		next.HalfMove = 0
	}
	if before.Turn == board.Black {
		next.FullMove++
	}

	return Ply{
		State:      next,
		Algebraic:  notation.Algebraic(before.Board, m),
		Coordinate: coordinate(m),
		Status:     rules.ClassifyState(next),
		Captured:   applied.Captured,
	}
}

// coordinate appends the lowercase promotion letter, e.g. e7e8q
func coordinate(m board.Move) string {
	s := notation.EncodeCoordinate(m)
	if m.Promotion != board.NoPieceType {
		s += strings.ToLower(string(m.Promotion.Letter()))
	}
	return s
}
