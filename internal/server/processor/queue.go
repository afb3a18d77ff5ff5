package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llmchess/internal/logger"
	"llmchess/internal/oracle"
)

var (
	ErrQueueFull     = errors.New("oracle queue is full")
	ErrQueueShutdown = errors.New("oracle queue is shutting down")
)

// OracleTask is one request for an oracle move
type OracleTask struct {
	GameID   string
	Request  oracle.Request
	ctx      context.Context
	callback func(OracleResult)
}

// OracleResult contains the outcome of an oracle consultation
type OracleResult struct {
	GameID  string
	Move    string
	Oracle  string
	Elapsed time.Duration
	Error   error
}

// OracleQueue runs oracle consultations on a worker pool. Each task waits the
// pacing delay, then asks the oracle under a per-task timeout.
type OracleQueue struct {
	oracle  oracle.Oracle
	tasks   chan OracleTask
	workers int
	delay   time.Duration
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // gameID → cancel of its queued or running task

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewOracleQueue creates a queue with the given worker count and capacity
func NewOracleQueue(o oracle.Oracle, workerCount, capacity int, delay, timeout time.Duration, log zerolog.Logger) *OracleQueue {
	if workerCount < 1 {
		workerCount = 2
	}
	if capacity < 1 {
		capacity = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &OracleQueue{
		oracle:  o,
		tasks:   make(chan OracleTask, capacity),
		workers: workerCount,
		delay:   delay,
		timeout: timeout,
		log:     logger.Component(log, "oracle-queue"),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}

	q.start()
	return q
}

func (q *OracleQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

func (q *OracleQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case task := <-q.tasks:
			result := q.processTask(task)
			q.finish(task.GameID)
			if result.Error != nil {
				q.log.Warn().Err(result.Error).Int("worker", id).Str("gameId", task.GameID).Msg("oracle task failed")
			} else {
				q.log.Debug().Int("worker", id).Str("gameId", task.GameID).Str("move", result.Move).
					Dur("elapsed", result.Elapsed).Msg("oracle task done")
			}
			task.callback(result)

		case <-q.ctx.Done():
			return
		}
	}
}

func (q *OracleQueue) processTask(task OracleTask) OracleResult {
	result := OracleResult{
		GameID: task.GameID,
		Oracle: q.oracle.Name(),
	}

	// Pacing delay, abandoned on cancel
	if q.delay > 0 {
		timer := time.NewTimer(q.delay)
		select {
		case <-timer.C:
		case <-task.ctx.Done():
			timer.Stop()
			result.Error = task.ctx.Err()
			return result
		}
	}

	ctx, cancel := context.WithTimeout(task.ctx, q.timeout)
	defer cancel()

	start := time.Now()
	move, err := q.oracle.SuggestMove(ctx, task.Request)
	result.Elapsed = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.Move = move
	return result
}

func (q *OracleQueue) finish(gameID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cancel, ok := q.cancels[gameID]; ok {
		cancel()
		delete(q.cancels, gameID)
	}
}

// SubmitAsync queues a task; callback runs on a worker goroutine with the result.
// At most one task per game is accepted at a time.
func (q *OracleQueue) SubmitAsync(gameID string, req oracle.Request, callback func(OracleResult)) error {
	if q.ctx.Err() != nil {
		return ErrQueueShutdown
	}

	q.mu.Lock()
	if _, busy := q.cancels[gameID]; busy {
		q.mu.Unlock()
		return fmt.Errorf("game %s already has an oracle task", gameID)
	}
	ctx, cancel := context.WithCancel(q.ctx)
	q.cancels[gameID] = cancel
	q.mu.Unlock()

	task := OracleTask{
		GameID:   gameID,
		Request:  req,
		ctx:      ctx,
		callback: callback,
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		q.finish(gameID)
		return ErrQueueFull
	}
}

// Cancel aborts the queued or running task of a game; its callback still runs
func (q *OracleQueue) Cancel(gameID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cancel, ok := q.cancels[gameID]; ok {
		cancel()
	}
}

// Shutdown cancels every task and stops the workers
func (q *OracleQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
