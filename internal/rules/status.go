package rules

import "llmchess/internal/board"

// Status is derived from a position and its legal moves; it is never stored on its own
type Status int

const (
	Ongoing Status = iota
	Check
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Check:
		return "check"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "ongoing"
	}
}

// Terminal is true when play cannot continue
func (s Status) Terminal() bool {
	return s == Checkmate || s == Stalemate
}

// Classify derives the status of the side to move from its legal move set
func Classify(b board.Board, toMove board.Color, legal []board.Move) Status {
	inCheck := IsInCheck(b, toMove)
	if len(legal) == 0 {
		if inCheck {
			return Checkmate
		}
		return Stalemate
	}
	if inCheck {
		return Check
	}
	return Ongoing
}

// ClassifyState generates the legal moves of the side to move and classifies them
func ClassifyState(st board.State) Status {
	legal := LegalMoves(st.Board, st.Turn, st.Castling, st.EnPassant)
	return Classify(st.Board, st.Turn, legal)
}
