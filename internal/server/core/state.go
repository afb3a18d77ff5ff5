package core

import (
	"llmchess/internal/board"
	"llmchess/internal/rules"
)

// Outcome values reported to clients
const (
	OutcomeOngoing   = "ongoing"
	OutcomeWhiteWins = "white wins"
	OutcomeBlackWins = "black wins"
	OutcomeStalemate = "stalemate"
)

// Outcome names the result of a position; on checkmate the side to move has lost
func Outcome(status rules.Status, toMove board.Color) string {
	switch status {
	case rules.Checkmate:
		if toMove == board.White {
			return OutcomeBlackWins
		}
		return OutcomeWhiteWins
	case rules.Stalemate:
		return OutcomeStalemate
	default:
		return OutcomeOngoing
	}
}
