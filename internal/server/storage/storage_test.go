package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chess.db")
	s, err := NewStore(path, true, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := s.InitDB(); err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func syncStore(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
}

func sampleGame(id string) GameRecord {
	return GameRecord{
		GameID:        id,
		InitialFEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		WhitePlayerID: "white-" + id,
		WhiteType:     1,
		BlackPlayerID: "black-" + id,
		BlackType:     2,
		BlackOracle:   "openai:gpt-3.5-turbo",
		StartTimeUTC:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordAndQuery(t *testing.T) {
	s, _ := newStore(t)

	game := sampleGame("g1")
	moves := []MoveRecord{
		{GameID: "g1", MoveNumber: 1, Coordinate: "e2e4", Algebraic: "e4", FENAfterMove: "fen1", PlayerColor: "w", MoveTimeUTC: time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)},
		{GameID: "g1", MoveNumber: 2, Coordinate: "e7e5", Algebraic: "e5", FENAfterMove: "fen2", PlayerColor: "b", Oracle: "openai:gpt-3.5-turbo", MoveTimeUTC: time.Date(2024, 5, 1, 12, 0, 2, 0, time.UTC)},
	}

	if err := s.RecordNewGame(game); err != nil {
		t.Fatalf("RecordNewGame() error: %v", err)
	}
	for _, m := range moves {
		if err := s.RecordMove(m); err != nil {
			t.Fatalf("RecordMove() error: %v", err)
		}
	}
	syncStore(t, s)

	games, err := s.QueryGames("g1", "")
	if err != nil {
		t.Fatalf("QueryGames() error: %v", err)
	}
	if diff := cmp.Diff([]GameRecord{game}, games, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("QueryGames mismatch (-want +got):\n%s", diff)
	}

	byPlayer, err := s.QueryGames("*", "black-g1")
	if err != nil || len(byPlayer) != 1 {
		t.Errorf("QueryGames by player = %v, %v", byPlayer, err)
	}

	got, err := s.QueryMoves("g1")
	if err != nil {
		t.Fatalf("QueryMoves() error: %v", err)
	}
	if diff := cmp.Diff(moves, got, cmpopts.IgnoreFields(MoveRecord{}, "MoveID"), cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("QueryMoves mismatch (-want +got):\n%s", diff)
	}
}

func TestUndoAndDelete(t *testing.T) {
	s, _ := newStore(t)

	s.RecordNewGame(sampleGame("g2"))
	for i, c := range []string{"e2e4", "e7e5", "g1f3"} {
		s.RecordMove(MoveRecord{GameID: "g2", MoveNumber: i + 1, Coordinate: c, Algebraic: c, FENAfterMove: "f", PlayerColor: []string{"w", "b"}[i%2]})
	}
	s.DeleteUndoneMoves("g2", 1)
	syncStore(t, s)

	moves, err := s.QueryMoves("g2")
	if err != nil {
		t.Fatalf("QueryMoves() error: %v", err)
	}
	if len(moves) != 1 || moves[0].Coordinate != "e2e4" {
		t.Errorf("moves after undo = %+v", moves)
	}

	s.DeleteGame("g2")
	syncStore(t, s)

	if games, _ := s.QueryGames("g2", ""); len(games) != 0 {
		t.Errorf("game survived delete: %+v", games)
	}
	if moves, _ := s.QueryMoves("g2"); len(moves) != 0 {
		t.Errorf("moves survived cascade delete: %+v", moves)
	}
	if !s.IsHealthy() {
		t.Error("store degraded by valid writes")
	}
}

func TestFailedWriteDegrades(t *testing.T) {
	s, _ := newStore(t)

	// Foreign key violation: no such game
	s.RecordMove(MoveRecord{GameID: "missing", MoveNumber: 1, Coordinate: "e2e4", Algebraic: "e4", FENAfterMove: "f", PlayerColor: "w"})
	syncStore(t, s)

	if s.IsHealthy() {
		t.Fatal("store still healthy after a failed write")
	}
	if err := s.RecordNewGame(sampleGame("g3")); err != nil {
		t.Errorf("write on degraded store error = %v, want silent drop", err)
	}
}

func TestDeleteDB(t *testing.T) {
	s, path := newStore(t)
	if err := s.DeleteDB(); err != nil {
		t.Fatalf("DeleteDB() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("database file still present: %v", err)
	}
}
