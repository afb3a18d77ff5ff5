package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llmchess/internal/logger"
	"llmchess/internal/server/game"
	"llmchess/internal/server/storage"
)

// Service coordinates game state, long-poll waiters and storage
type Service struct {
	games  map[string]*game.Game
	mu     sync.RWMutex
	store  *storage.Store
	waiter *WaitRegistry
	log    zerolog.Logger
}

// New creates a new service instance; store may be nil to disable persistence
func New(store *storage.Store, log zerolog.Logger) *Service {
	return &Service{
		games:  make(map[string]*game.Game),
		store:  store,
		waiter: NewWaitRegistry(),
		log:    logger.Component(log, "service"),
	}
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RegisterWait registers a client that last saw moveCount moves. The channel is
// already closed when the game has moved on or no longer exists.
func (s *Service) RegisterWait(ctx context.Context, gameID string, moveCount int) <-chan struct{} {
	g, err := s.GetGame(gameID)
	if err != nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.waiter.RegisterWait(ctx, gameID, moveCount, g.MoveCount)
}

// NotifyGame wakes every waiter of a game, whatever move count it last saw
func (s *Service) NotifyGame(gameID string) {
	s.waiter.Wake(gameID)
}

// Shutdown releases waiters and closes storage
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[string]*game.Game)

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
