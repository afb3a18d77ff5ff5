package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var errEngineClosed = errors.New("engine closed unexpectedly")

// UCI drives a UCI engine process such as Stockfish
type UCI struct {
	name     string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	lines    chan string
	moveTime time.Duration

	mu    sync.Mutex // one search at a time
	stale int        // bestmove lines still owed by abandoned searches
}

// NewUCI starts the engine at path and completes the uci/isready handshake
func NewUCI(path string, moveTime time.Duration) (*UCI, error) {
	return startUCI(exec.Command(path), moveTime)
}

func startUCI(cmd *exec.Cmd, moveTime time.Duration) (*UCI, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	u := &UCI{
		name:     "uci:" + filepath.Base(cmd.Path),
		cmd:      cmd,
		stdin:    stdin,
		lines:    make(chan string, 64),
		moveTime: moveTime,
	}
	go u.read(stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.initialize(ctx); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

func (u *UCI) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		u.lines <- scanner.Text()
	}
	close(u.lines)
}

func (u *UCI) initialize(ctx context.Context) error {
	if err := u.send("uci"); err != nil {
		return err
	}
	if _, err := u.waitFor(ctx, "uciok"); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	if err := u.send("isready"); err != nil {
		return err
	}
	if _, err := u.waitFor(ctx, "readyok"); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

func (u *UCI) send(cmd string) error {
	_, err := fmt.Fprintln(u.stdin, cmd)
	return err
}

// waitFor returns the first line starting with prefix
func (u *UCI) waitFor(ctx context.Context, prefix string) (string, error) {
	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return "", errEngineClosed
			}
			if strings.HasPrefix(line, "bestmove") && u.stale > 0 {
				u.stale--
				continue
			}
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (u *UCI) Name() string {
	return u.name
}

// SuggestMove searches the position for the configured move time. A cancelled
// search is stopped and its late bestmove discarded.
func (u *UCI) SuggestMove(ctx context.Context, req Request) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.send("position fen " + req.FEN); err != nil {
		return "", u.fail(err)
	}
	if err := u.send(fmt.Sprintf("go movetime %d", u.moveTime.Milliseconds())); err != nil {
		return "", u.fail(err)
	}

	line, err := u.waitFor(ctx, "bestmove ")
	if err != nil {
		if ctx.Err() != nil {
			u.send("stop")
			u.stale++
		}
		return "", u.fail(err)
	}

	parts := strings.Fields(line)
	if len(parts) < 2 || parts[1] == "(none)" {
		return "", u.fail(ErrNoMove)
	}
	move, ok := ExtractMove(parts[1])
	if !ok {
		return "", u.fail(fmt.Errorf("%w: %q", ErrNoMove, parts[1]))
	}
	return move, nil
}

func (u *UCI) fail(err error) error {
	return &Error{Oracle: u.name, Err: err}
}

func (u *UCI) Close() error {
	u.send("quit")

	// Try graceful shutdown first
	done := make(chan error, 1)
	go func() {
		done <- u.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(1 * time.Second):
		// Force kill if doesn't exit gracefully
		return u.cmd.Process.Kill()
	}
}
