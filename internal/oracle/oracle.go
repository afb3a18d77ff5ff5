// Package oracle asks an external move source (a language model provider or a UCI
// engine) for a move. The answer is an untrusted coordinate string; callers decode
// it and check legality before applying it.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"llmchess/internal/config"
)

// Oracle suggests a move for the side to move
type Oracle interface {
	Name() string
	SuggestMove(ctx context.Context, req Request) (string, error)
}

// Request describes the position the oracle is asked about
type Request struct {
	FEN     string
	Turn    string   // "white" or "black"
	History []string // algebraic moves so far
	Hint    bool     // ask for a suggestion for a human player
}

// ErrNoMove is wrapped when a response holds no coordinate move
var ErrNoMove = errors.New("no move in oracle response")

// Error is an oracle failure. The game state is never changed by one.
type Error struct {
	Oracle string
	Status int // HTTP status, 0 when not applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oracle %s: status %d: %v", e.Oracle, e.Status, e.Err)
	}
	return fmt.Sprintf("oracle %s: %v", e.Oracle, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds the configured oracle; it returns nil when none is configured
func New(cfg config.Oracle) (Oracle, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderGemini, config.ProviderCohere:
		l, err := NewLLM(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.ProviderUCI:
		u, err := NewUCI(cfg.EnginePath, cfg.MoveTime)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
