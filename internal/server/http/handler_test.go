package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"llmchess/internal/config"
	"llmchess/internal/oracle"
	"llmchess/internal/server/core"
	"llmchess/internal/server/processor"
	"llmchess/internal/server/service"
)

type fixedOracle struct{ move string }

func (o fixedOracle) Name() string { return "fixed" }

func (o fixedOracle) SuggestMove(context.Context, oracle.Request) (string, error) {
	return o.move, nil
}

func newApp(t *testing.T, o oracle.Oracle) (*fiber.App, *service.Service) {
	t.Helper()
	cfg := config.Default()
	cfg.Oracle.Delay = 0
	cfg.Server.RateLimit = 1000

	svc := service.New(nil, zerolog.Nop())
	proc := processor.New(svc, o, cfg, zerolog.Nop())
	t.Cleanup(func() {
		proc.Close()
		svc.Shutdown(time.Second)
	})
	return NewFiberApp(proc, svc, cfg.Server), svc
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

const humans = `{"white":{"type":1},"black":{"type":1}}`

func createGame(t *testing.T, app *fiber.App, body string) core.GameResponse {
	t.Helper()
	status, b := do(t, app, fiber.MethodPost, "/api/v1/games", body)
	if status != fiber.StatusCreated {
		t.Fatalf("create game: status %d: %s", status, b)
	}
	return decode[core.GameResponse](t, b)
}

func TestHealth(t *testing.T) {
	app, _ := newApp(t, nil)
	status, b := do(t, app, fiber.MethodGet, "/health", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	got := decode[map[string]any](t, b)
	if got["status"] != "healthy" || got["storage"] != "disabled" {
		t.Errorf("health = %v", got)
	}
}

func TestGameFlow(t *testing.T) {
	app, _ := newApp(t, nil)
	g := createGame(t, app, humans)
	base := "/api/v1/games/" + g.GameID

	status, b := do(t, app, fiber.MethodPost, base+"/moves", `{"move":"e2e4"}`)
	if status != fiber.StatusOK {
		t.Fatalf("move: status %d: %s", status, b)
	}
	got := decode[core.GameResponse](t, b)
	if got.FEN != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1" {
		t.Errorf("FEN = %s", got.FEN)
	}
	if got.LastMove == nil || got.LastMove.Algebraic != "e4" {
		t.Errorf("last move = %+v", got.LastMove)
	}

	status, b = do(t, app, fiber.MethodGet, base+"/legal?square=g8", "")
	if status != fiber.StatusOK {
		t.Fatalf("legal: status %d: %s", status, b)
	}
	legal := decode[core.LegalMovesResponse](t, b)
	if diff := cmp.Diff([]string{"f6", "h6"}, legal.Moves); diff != "" {
		t.Errorf("legal targets mismatch (-want +got):\n%s", diff)
	}

	status, b = do(t, app, fiber.MethodGet, base+"/board", "")
	if status != fiber.StatusOK {
		t.Fatalf("board: status %d", status)
	}
	if board := decode[core.BoardResponse](t, b); board.Grid[4][4] != "wP" {
		t.Errorf("e4 = %q", board.Grid[4][4])
	}

	status, b = do(t, app, fiber.MethodPost, base+"/undo", "")
	if status != fiber.StatusOK {
		t.Fatalf("undo: status %d: %s", status, b)
	}
	if got := decode[core.GameResponse](t, b); len(got.Moves) != 0 {
		t.Errorf("moves after undo = %v", got.Moves)
	}

	if status, _ = do(t, app, fiber.MethodDelete, base, ""); status != fiber.StatusNoContent {
		t.Errorf("delete: status %d", status)
	}
	if status, _ = do(t, app, fiber.MethodGet, base, ""); status != fiber.StatusNotFound {
		t.Errorf("get deleted: status %d", status)
	}
}

func TestErrorStatuses(t *testing.T) {
	app, _ := newApp(t, nil)
	g := createGame(t, app, humans)
	base := "/api/v1/games/" + g.GameID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad uuid", fiber.MethodGet, "/api/v1/games/not-a-uuid", "", fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"unknown game", fiber.MethodGet, "/api/v1/games/00000000-0000-0000-0000-000000000000", "", fiber.StatusNotFound, core.ErrGameNotFound},
		{"missing move", fiber.MethodPost, base + "/moves", `{}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"long move", fiber.MethodPost, base + "/moves", `{"move":"e2e4qq"}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"illegal move", fiber.MethodPost, base + "/moves", `{"move":"e2e5"}`, fiber.StatusBadRequest, core.ErrInvalidMove},
		{"malformed move", fiber.MethodPost, base + "/moves", `{"move":"x2e4"}`, fiber.StatusBadRequest, core.ErrMalformedNotation},
		{"bad player type", fiber.MethodPost, "/api/v1/games", `{"white":{"type":3},"black":{"type":1}}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"bad promotion piece", fiber.MethodPost, base + "/promotion", `{"piece":"k"}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"no promotion pending", fiber.MethodPost, base + "/promotion", `{"piece":"q"}`, fiber.StatusConflict, core.ErrNoPromotionPending},
		{"undo too many", fiber.MethodPost, base + "/undo", `{"count":301}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"invalid fen", fiber.MethodPost, "/api/v1/games", `{"white":{"type":1},"black":{"type":1},"fen":"xyz"}`, fiber.StatusBadRequest, core.ErrInvalidFEN},
		{"bad turn", fiber.MethodPost, "/api/v1/games", `{"white":{"type":1},"black":{"type":1},"turn":"red"}`, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"no oracle", fiber.MethodPost, base + "/oracle", "", fiber.StatusBadRequest, core.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, b := do(t, app, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d: %s", status, tt.status, b)
			}
			if got := decode[core.ErrorResponse](t, b); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	app, _ := newApp(t, nil)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/games", strings.NewReader(humans))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestValidationDetails(t *testing.T) {
	app, _ := newApp(t, nil)

	tests := []struct {
		body string
		want string
	}{
		{`{"white":{"type":3},"black":{"type":1}}`, "white.type must be one of [1 2]"},
		{`{"white":{"type":1}}`, "black is required"},
		{`{"white":{"type":1},"black":{"type":1,"name":"` + strings.Repeat("x", 65) + `"}}`, "black.name must be at most 64 characters"},
	}

	for _, tt := range tests {
		status, b := do(t, app, fiber.MethodPost, "/api/v1/games", tt.body)
		if status != fiber.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.body, status)
		}
		if got := decode[core.ErrorResponse](t, b); got.Details != tt.want {
			t.Errorf("details = %q, want %q", got.Details, tt.want)
		}
	}
}

func TestPromotionRoute(t *testing.T) {
	app, _ := newApp(t, nil)
	g := createGame(t, app, `{"white":{"type":1},"black":{"type":1},"fen":"7k/P7/8/8/8/8/8/K7 w - - 0 1"}`)
	base := "/api/v1/games/" + g.GameID

	_, b := do(t, app, fiber.MethodPost, base+"/moves", `{"move":"a7a8"}`)
	if got := decode[core.GameResponse](t, b); got.PromotionPending != "a8" {
		t.Fatalf("promotion pending = %q", got.PromotionPending)
	}

	status, b := do(t, app, fiber.MethodPost, base+"/moves", `{"move":"a1a2"}`)
	if status != fiber.StatusConflict || decode[core.ErrorResponse](t, b).Code != core.ErrPromotionPending {
		t.Errorf("move while pending: %d %s", status, b)
	}

	status, b = do(t, app, fiber.MethodPost, base+"/promotion", `{"piece":"N"}`)
	if status != fiber.StatusOK {
		t.Fatalf("promote: status %d: %s", status, b)
	}
	if got := decode[core.GameResponse](t, b); got.FEN != "N6k/8/8/8/8/8/8/K7 b - - 0 1" {
		t.Errorf("FEN = %s", got.FEN)
	}
}

func TestLongPollOracleMove(t *testing.T) {
	app, _ := newApp(t, fixedOracle{move: "e7e5"})
	g := createGame(t, app, `{"white":{"type":1},"black":{"type":2}}`)
	base := "/api/v1/games/" + g.GameID

	status, b := do(t, app, fiber.MethodPost, base+"/moves", `{"move":"e2e4"}`)
	if status != fiber.StatusOK {
		t.Fatalf("move: status %d: %s", status, b)
	}

	// Wait until the oracle reply lands
	deadline := time.Now().Add(3 * time.Second)
	for {
		_, b = do(t, app, fiber.MethodGet, base+"?wait=true&moveCount=1", "")
		got := decode[core.GameResponse](t, b)
		if len(got.Moves) == 2 {
			if got.Moves[1] != "e5" || got.LastMove.Oracle != "fixed" || got.OraclePending {
				t.Errorf("after oracle move: %+v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("oracle move never arrived: %s", b)
		}
	}
}

func TestHint(t *testing.T) {
	app, _ := newApp(t, fixedOracle{move: "g1f3"})
	g := createGame(t, app, humans)

	status, b := do(t, app, fiber.MethodGet, "/api/v1/games/"+g.GameID+"/hint", "")
	if status != fiber.StatusOK {
		t.Fatalf("hint: status %d: %s", status, b)
	}
	want := core.HintResponse{Move: "g1f3", Algebraic: "Nf3", Oracle: "fixed"}
	if diff := cmp.Diff(want, decode[core.HintResponse](t, b)); diff != "" {
		t.Errorf("hint mismatch (-want +got):\n%s", diff)
	}
}
