package oracle

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	movePattern   = regexp.MustCompile(`[a-h][1-8][a-h][1-8](?:[qrbn](?:[^a-z]|$))?`)
	nonSquareChar = regexp.MustCompile(`[^a-h1-8]`)
)

const systemPrompt = "You are a chess AI assistant. Analyze the board and suggest the best move."

// BuildPrompt renders the move request sent to a language model
func BuildPrompt(req Request) string {
	if req.Hint {
		return buildHintPrompt(req)
	}

	previous := "No moves played yet."
	if len(req.History) > 0 {
		previous = strings.Join(promptHistory(req.History), ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are playing as the %s pieces in a chess game.\n", side(req.Turn))
	fmt.Fprintf(&sb, "Current board state in FEN notation: %s\n\n", req.FEN)
	fmt.Fprintf(&sb, "Previous moves: %s\n\n", previous)
	sb.WriteString("Please analyze the position and choose the best move. Follow these rules:\n")
	sb.WriteString("1. Your response must include exactly one valid chess move in simple algebraic notation (e.g., e2e4).\n")
	sb.WriteString("2. The move must be legal according to standard chess rules.\n")
	sb.WriteString("3. Format your move answer as a2a4 (from square to square, no spaces, lowercase).\n")
	sb.WriteString("4. Do not include any other text or explanation.\n\n")
	sb.WriteString("Your move (in a2a4 format):")
	return sb.String()
}

func buildHintPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("You're a chess expert. Given the current position and history, suggest a strong next move in UCI format (e.g., e2e4). Respond with only the move.\n\n")
	fmt.Fprintf(&sb, "FEN: %s\n", req.FEN)
	fmt.Fprintf(&sb, "Moves: %s\n\n", strings.Join(req.History, " "))
	sb.WriteString("Best move:")
	return sb.String()
}

func side(turn string) string {
	if turn == "black" || turn == "b" {
		return "black"
	}
	return "white"
}

// promptHistory keeps only square characters of each move; castling tokens pass unchanged
func promptHistory(history []string) []string {
	out := make([]string, len(history))
	for i, m := range history {
		if strings.HasPrefix(m, "O-O") {
			out[i] = m
			continue
		}
		out[i] = nonSquareChar.ReplaceAllString(m, "")
	}
	return out
}

// ExtractMove returns the first coordinate move in text, keeping a promotion
// letter that directly follows it (e7e8q)
func ExtractMove(text string) (string, bool) {
	m := movePattern.FindString(text)
	if len(m) > 5 {
		m = m[:5]
	}
	return m, m != ""
}
