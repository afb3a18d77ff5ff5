package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"llmchess/internal/board"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
	"llmchess/internal/server/storage"
)

var ErrGameNotFound = errors.New("game not found")

// CreateGame registers a new game starting from initial
func (s *Service) CreateGame(id string, whitePlayer, blackPlayer *core.Player, initial board.State) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[id]; exists {
		return nil, fmt.Errorf("game %s already exists", id)
	}

	g := game.New(initial, whitePlayer, blackPlayer)
	s.games[id] = g

	if s.store != nil {
		record := gameRecord(id, whitePlayer, blackPlayer)
		record.InitialFEN = g.InitialFEN()
		record.StartTimeUTC = time.Now().UTC()
		s.store.RecordNewGame(record)
	}

	s.log.Info().Str("gameId", id).
		Str("white", whitePlayer.Type.String()).
		Str("black", blackPlayer.Type.String()).
		Msg("game created")
	return g, nil
}

func gameRecord(id string, whitePlayer, blackPlayer *core.Player) storage.GameRecord {
	return storage.GameRecord{
		GameID:        id,
		WhitePlayerID: whitePlayer.ID,
		WhiteType:     int(whitePlayer.Type),
		WhiteOracle:   whitePlayer.Oracle,
		BlackPlayerID: blackPlayer.ID,
		BlackType:     int(blackPlayer.Type),
		BlackOracle:   blackPlayer.Oracle,
	}
}

// UpdatePlayers replaces players in an existing game
func (s *Service) UpdatePlayers(gameID string, whitePlayer, blackPlayer *core.Player) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	g.UpdatePlayers(whitePlayer, blackPlayer)
	if s.store != nil {
		s.store.UpdatePlayers(gameRecord(gameID, whitePlayer, blackPlayer))
	}
	s.waiter.Wake(gameID)
	return nil
}

// GetGame retrieves a game by ID
func (s *Service) GetGame(gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// RecordMove persists a move already applied to the game and wakes waiters
func (s *Service) RecordMove(gameID string, g *game.Game, result *game.MoveResult) {
	if s.store != nil {
		s.store.RecordMove(storage.MoveRecord{
			GameID:       gameID,
			MoveNumber:   result.MoveNumber,
			Coordinate:   result.Coordinate,
			Algebraic:    result.Algebraic,
			FENAfterMove: result.FEN,
			PlayerColor:  result.Color.String(),
			Oracle:       result.Oracle,
			MoveTimeUTC:  time.Now().UTC(),
		})
	}

	s.log.Debug().Str("gameId", gameID).
		Int("moveNumber", result.MoveNumber).
		Str("move", result.Coordinate).
		Str("status", result.Status.String()).
		Msg("move recorded")
	s.waiter.NotifyGame(gameID, g.MoveCount())
}

// UndoMoves removes the specified number of moves from game history
func (s *Service) UndoMoves(gameID string, count int) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := g.UndoMoves(count); err != nil {
		return err
	}
	remaining := g.MoveCount()

	// Cancelling a pending promotion leaves the move count unchanged
	s.waiter.Wake(gameID)
	if s.store != nil {
		s.store.DeleteUndoneMoves(gameID, remaining)
	}
	return nil
}

// DeleteGame removes a game from memory and storage
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	// Release waiters before the game disappears
	s.waiter.RemoveGame(gameID)

	delete(s.games, gameID)
	if s.store != nil {
		s.store.DeleteGame(gameID)
	}
	s.log.Info().Str("gameId", gameID).Msg("game deleted")
	return nil
}

// GameCount returns the number of live games
func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
