package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the maximum time a client can wait for notifications
const WaitTimeout = 25 * time.Second

// WaitRegistry manages long-polling clients waiting for game state changes
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*WaitRequest // gameID → waiting clients
	shutdown chan struct{}
	wg       sync.WaitGroup
	timeout  time.Duration
}

// WaitRequest is one client waiting for game updates. Done is closed exactly once,
// on a state change, timeout, game removal or shutdown.
type WaitRequest struct {
	MoveCount int
	GameID    string
	done      chan struct{}
	once      sync.Once
}

func (r *WaitRequest) release() {
	r.once.Do(func() { close(r.done) })
}

func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		shutdown: make(chan struct{}),
		timeout:  WaitTimeout,
	}
}

// RegisterWait returns a channel closed when the game's move count moves away
// from moveCount, the game is woken or removed, the wait times out, or ctx ends.
// current reports the count now; it is checked under the registry lock, so a
// move notified just before registration still releases the waiter.
func (w *WaitRegistry) RegisterWait(ctx context.Context, gameID string, moveCount int, current func() int) <-chan struct{} {
	req := &WaitRequest{
		MoveCount: moveCount,
		GameID:    gameID,
		done:      make(chan struct{}),
	}

	w.mu.Lock()
	w.waiters[gameID] = append(w.waiters[gameID], req)
	if current != nil && current() != moveCount {
		req.release()
	}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
		case <-req.done:
		case <-w.shutdown:
		}
		req.release()
		w.removeWaiter(gameID, req)
	}()

	return req.done
}

// NotifyGame releases waiters whose last known move count differs
func (w *WaitRegistry) NotifyGame(gameID string, currentMoveCount int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, req := range w.waiters[gameID] {
		if req.MoveCount != currentMoveCount {
			req.release()
		}
	}
}

// Wake releases every waiter of a game
func (w *WaitRegistry) Wake(gameID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, req := range w.waiters[gameID] {
		req.release()
	}
}

// RemoveGame releases and forgets all waiters of a game
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.release()
	}
}

// waiting returns the number of clients waiting on a game
func (w *WaitRegistry) waiting(gameID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters[gameID])
}

// Shutdown releases all waiters and waits for their goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	close(w.shutdown)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

func (w *WaitRegistry) removeWaiter(gameID string, req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[gameID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[gameID] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[gameID]) == 0 {
		delete(w.waiters, gameID)
	}
}
