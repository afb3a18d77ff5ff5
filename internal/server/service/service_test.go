package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
	"llmchess/internal/server/storage"
)

func players() (*core.Player, *core.Player) {
	return core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, board.White, ""),
		core.NewPlayer(core.PlayerConfig{Type: core.PlayerOracle}, board.Black, "fake")
}

func newService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "chess.db"), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	svc := New(store, zerolog.Nop())
	t.Cleanup(func() { svc.Shutdown(time.Second) })
	return svc, store
}

func received(ch <-chan struct{}, within time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(within):
		return false
	}
}

func TestGameLifecycle(t *testing.T) {
	svc, store := newService(t)
	white, black := players()

	id := svc.GenerateGameID()
	g, err := svc.CreateGame(id, white, black, board.InitialState())
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	if _, err := svc.CreateGame(id, white, black, board.InitialState()); err == nil {
		t.Error("duplicate CreateGame succeeded")
	}

	for _, s := range []string{"e2e4", "e7e5"} {
		m, _ := notation.DecodeCoordinate(s)
		res, err := g.Play(m)
		if err != nil {
			t.Fatalf("Play(%s) error: %v", s, err)
		}
		svc.RecordMove(id, g, res)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	moves, err := store.QueryMoves(id)
	if err != nil || len(moves) != 2 || moves[1].Algebraic != "e5" || moves[1].PlayerColor != "b" {
		t.Fatalf("stored moves = %+v, %v", moves, err)
	}

	if err := svc.UndoMoves(id, 1); err != nil {
		t.Fatalf("UndoMoves() error: %v", err)
	}
	store.Sync(ctx)
	if moves, _ := store.QueryMoves(id); len(moves) != 1 {
		t.Errorf("stored moves after undo = %d, want 1", len(moves))
	}

	if err := svc.DeleteGame(id); err != nil {
		t.Fatalf("DeleteGame() error: %v", err)
	}
	if _, err := svc.GetGame(id); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("GetGame after delete error = %v, want ErrGameNotFound", err)
	}
	if err := svc.DeleteGame(id); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("second DeleteGame error = %v, want ErrGameNotFound", err)
	}
	if svc.GetStorageHealth() != "ok" {
		t.Errorf("storage health = %q", svc.GetStorageHealth())
	}
}

func TestRecordMoveAfterLaterMove(t *testing.T) {
	svc, store := newService(t)
	white, black := players()
	id := svc.GenerateGameID()
	g, _ := svc.CreateGame(id, white, black, board.InitialState())

	// Both moves land before either is recorded
	var results []*game.MoveResult
	for _, s := range []string{"e2e4", "e7e5"} {
		m, _ := notation.DecodeCoordinate(s)
		res, err := g.Play(m)
		if err != nil {
			t.Fatalf("Play(%s) error: %v", s, err)
		}
		results = append(results, res)
	}
	for _, res := range results {
		svc.RecordMove(id, g, res)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	moves, err := store.QueryMoves(id)
	if err != nil {
		t.Fatal(err)
	}
	type stored struct {
		Number     int
		Coordinate string
		FEN        string
	}
	var got []stored
	for _, m := range moves {
		got = append(got, stored{m.MoveNumber, m.Coordinate, m.FENAfterMove})
	}
	want := []stored{
		{1, "e2e4", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"},
		{2, "e7e5", "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored moves mismatch (-want +got):\n%s", diff)
	}
	if svc.GetStorageHealth() != "ok" {
		t.Errorf("storage health = %q", svc.GetStorageHealth())
	}
}

func TestStorageDisabled(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	defer svc.Shutdown(time.Second)

	white, black := players()
	if _, err := svc.CreateGame("x", white, black, board.InitialState()); err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	if svc.GetStorageHealth() != "disabled" {
		t.Errorf("storage health = %q, want disabled", svc.GetStorageHealth())
	}
	if svc.GameCount() != 1 {
		t.Errorf("GameCount() = %d", svc.GameCount())
	}
}

func TestWaitNotifiedByMove(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	defer svc.Shutdown(time.Second)
	white, black := players()
	g, _ := svc.CreateGame("w1", white, black, board.InitialState())

	ch := svc.RegisterWait(context.Background(), "w1", 0)
	if received(ch, 20*time.Millisecond) {
		t.Fatal("waiter released before any change")
	}

	m, _ := notation.DecodeCoordinate("d2d4")
	res, err := g.Play(m)
	if err != nil {
		t.Fatal(err)
	}
	svc.RecordMove("w1", g, res)

	if !received(ch, time.Second) {
		t.Error("waiter not released by a move")
	}
}

func TestWaitRegisteredAfterMove(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	defer svc.Shutdown(time.Second)
	white, black := players()
	g, _ := svc.CreateGame("w2", white, black, board.InitialState())

	// The client saw 0 moves, then a move was recorded before it registered
	m, _ := notation.DecodeCoordinate("d2d4")
	res, err := g.Play(m)
	if err != nil {
		t.Fatal(err)
	}
	svc.RecordMove("w2", g, res)

	if !received(svc.RegisterWait(context.Background(), "w2", 0), time.Second) {
		t.Error("stale waiter not released")
	}
	if received(svc.RegisterWait(context.Background(), "w2", 1), 20*time.Millisecond) {
		t.Error("up-to-date waiter released")
	}
	if !received(svc.RegisterWait(context.Background(), "gone", 0), time.Second) {
		t.Error("waiter on a missing game not released")
	}
}

func TestWaitSameMoveCountNotReleased(t *testing.T) {
	w := NewWaitRegistry()
	defer w.Shutdown(time.Second)

	ch := w.RegisterWait(context.Background(), "g", 3, nil)
	w.NotifyGame("g", 3)
	if received(ch, 20*time.Millisecond) {
		t.Error("waiter released without a move count change")
	}
	w.Wake("g")
	if !received(ch, time.Second) {
		t.Error("waiter not released by Wake")
	}
}

func TestWaitReleaseReasons(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		w := NewWaitRegistry()
		w.timeout = 10 * time.Millisecond
		defer w.Shutdown(time.Second)
		if !received(w.RegisterWait(context.Background(), "g", 0, nil), time.Second) {
			t.Error("waiter not released by timeout")
		}
	})

	t.Run("context", func(t *testing.T) {
		w := NewWaitRegistry()
		defer w.Shutdown(time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		ch := w.RegisterWait(ctx, "g", 0, nil)
		cancel()
		if !received(ch, time.Second) {
			t.Error("waiter not released by context cancel")
		}
	})

	t.Run("remove game", func(t *testing.T) {
		w := NewWaitRegistry()
		defer w.Shutdown(time.Second)
		ch := w.RegisterWait(context.Background(), "g", 0, nil)
		w.RemoveGame("g")
		if !received(ch, time.Second) {
			t.Error("waiter not released by RemoveGame")
		}
	})

	t.Run("shutdown", func(t *testing.T) {
		w := NewWaitRegistry()
		ch := w.RegisterWait(context.Background(), "g", 0, nil)
		if err := w.Shutdown(time.Second); err != nil {
			t.Fatalf("Shutdown() error: %v", err)
		}
		if !received(ch, time.Second) {
			t.Error("waiter not released by shutdown")
		}
		if w.waiting("g") != 0 {
			t.Errorf("waiting() = %d after shutdown", w.waiting("g"))
		}
	})
}
