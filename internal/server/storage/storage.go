package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"llmchess/internal/logger"
)

var ErrQueueFull = errors.New("storage write queue full")

// Store persists games and moves in SQLite. Writes go through a single async
// writer goroutine; a failed write degrades the store and later writes are dropped.
type Store struct {
	db           *sql.DB
	path         string
	writeChan    chan func(*sql.Tx) error
	healthStatus atomic.Bool
	inflight     atomic.Int64
	log          zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewStore opens the database and starts the async writer
func NewStore(dataSourceName string, devMode bool, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL in development for concurrent readers while the writer runs
	if devMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Foreign key pragma is per connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		db:        db,
		path:      dataSourceName,
		writeChan: make(chan func(*sql.Tx) error, 1000),
		log:       logger.Component(log, "storage"),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.healthStatus.Store(true)

	s.wg.Add(1)
	go s.writerLoop()

	return s, nil
}

// IsHealthy returns true if the storage is operational
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

func (s *Store) writerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain what is already queued
			for {
				select {
				case fn := <-s.writeChan:
					if s.healthStatus.Load() {
						s.executeWrite(fn)
					}
					s.inflight.Add(-1)
				default:
					return
				}
			}

		case fn := <-s.writeChan:
			if s.healthStatus.Load() {
				s.executeWrite(fn)
			}
			s.inflight.Add(-1)
		}
	}
}

func (s *Store) executeWrite(fn func(*sql.Tx) error) {
	tx, err := s.db.Begin()
	if err != nil {
		s.degrade("begin transaction", err)
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		s.degrade("write operation", err)
		return
	}

	if err := tx.Commit(); err != nil {
		s.degrade("commit", err)
	}
}

func (s *Store) degrade(op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("storage degraded")
	s.healthStatus.Store(false)
}

// enqueue hands a write to the writer; it never blocks
func (s *Store) enqueue(kind string, fn func(*sql.Tx) error) error {
	if !s.healthStatus.Load() {
		return nil // Silently drop if degraded
	}
	s.inflight.Add(1)
	select {
	case s.writeChan <- fn:
		return nil
	default:
		s.inflight.Add(-1)
		s.log.Warn().Str("kind", kind).Msg("storage write queue full, dropping write")
		return ErrQueueFull
	}
}

// Sync blocks until every write queued before the call has been executed or dropped
func (s *Store) Sync(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for s.inflight.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops the writer after draining queued writes and closes the database
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			s.log.Warn().Msg("storage writer shutdown timeout, some writes may be lost")
		}

		err = s.db.Close()
	})
	return err
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB closes the store and removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}
