package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"llmchess/internal/config"
	"llmchess/internal/server/core"
	"llmchess/internal/server/processor"
	"llmchess/internal/server/service"
)

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, cfg config.Server) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: service.WaitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := cfg.RateLimit
	if cfg.DevMode {
		maxReq *= 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games/:gameId", h.GetGame)
	api.Put("/games/:gameId/players", h.ConfigurePlayers)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Post("/games/:gameId/moves", h.MakeMove)
	api.Post("/games/:gameId/promotion", h.Promote)
	api.Post("/games/:gameId/undo", h.UndoMove)
	api.Post("/games/:gameId/oracle", h.OracleMove)
	api.Get("/games/:gameId/hint", h.Hint)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Get("/games/:gameId/legal", h.GetLegalMoves)

	return app
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps a processor error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrGameNotFound:
		return fiber.StatusNotFound
	case core.ErrOracleBusy, core.ErrPromotionPending, core.ErrNoPromotionPending,
		core.ErrNotHumanTurn, core.ErrNotOracleTurn, core.ErrGameOver:
		return fiber.StatusConflict
	case core.ErrOracleFailure:
		return fiber.StatusBadGateway
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// respond writes a processor response; successStatus applies when it succeeded
func respond(c *fiber.Ctx, resp processor.ProcessorResponse, successStatus int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	if resp.Data == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(successStatus).JSON(resp.Data)
}

// gameID returns the validated :gameId path parameter
func gameID(c *fiber.Ctx) (string, error) {
	id := c.Params("gameId")
	if !isValidUUID(id) {
		return "", c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid game ID format",
			Code:    core.ErrInvalidRequest,
			Details: "game ID must be a valid UUID",
		})
	}
	return id, nil
}

// validatedBody retrieves the request body parsed and checked by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (T, bool) {
	var zero T
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return zero, false
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok || body == nil {
		return zero, false
	}
	return *body, true
}

func validationBypass(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: "validation bypass detected",
		Code:  core.ErrInternalError,
	})
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(),
		"games":   h.svc.GameCount(),
	})
}

// CreateGame creates a new game with specified player types
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CreateGameRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewCreateGameCommand(req))
	return respond(c, resp, fiber.StatusCreated)
}

// ConfigurePlayers updates player configuration mid-game
func (h *HTTPHandler) ConfigurePlayers(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}
	req, ok := validatedBody[core.ConfigurePlayersRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewConfigurePlayersCommand(id, req))
	return respond(c, resp, fiber.StatusOK)
}

// GetGame retrieves current game state. With wait=true the request is held
// until the game moves past moveCount, changes otherwise, or the wait times out.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	if c.Query("wait", "false") != "true" {
		return respond(c, h.proc.Execute(c.UserContext(), processor.NewGetGameCommand(id)), fiber.StatusOK)
	}

	moveCount, err := strconv.Atoi(c.Query("moveCount", "-1"))
	if err != nil {
		moveCount = -1
	}

	g, err := h.svc.GetGame(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "game not found",
			Code:  core.ErrGameNotFound,
		})
	}

	// Only wait when the client is up to date
	if moveCount == g.MoveCount() {
		ctx := c.Context()
		notify := h.svc.RegisterWait(ctx, id, moveCount)
		select {
		case <-notify:
		case <-ctx.Done():
			// Client disconnected
			return nil
		}
	}

	// Game might have been deleted meanwhile
	return respond(c, h.proc.Execute(c.UserContext(), processor.NewGetGameCommand(id)), fiber.StatusOK)
}

// MakeMove submits a move in coordinate notation
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}
	req, ok := validatedBody[core.MoveRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewMakeMoveCommand(id, req))
	return respond(c, resp, fiber.StatusOK)
}

// Promote completes a pending pawn promotion
func (h *HTTPHandler) Promote(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}
	req, ok := validatedBody[core.PromotionRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewPromoteCommand(id, req))
	return respond(c, resp, fiber.StatusOK)
}

// UndoMove undoes one or more moves
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}
	req, ok := validatedBody[core.UndoRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewUndoMoveCommand(id, req))
	return respond(c, resp, fiber.StatusOK)
}

// OracleMove asks the oracle to move for an oracle player
func (h *HTTPHandler) OracleMove(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewOracleMoveCommand(id))
	return respond(c, resp, fiber.StatusAccepted)
}

// Hint asks the oracle for a suggestion without playing it
func (h *HTTPHandler) Hint(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewHintCommand(id))
	return respond(c, resp, fiber.StatusOK)
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	return respond(c, h.proc.Execute(c.UserContext(), processor.NewDeleteGameCommand(id)), fiber.StatusNoContent)
}

// GetBoard returns ASCII and grid representations of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	return respond(c, h.proc.Execute(c.UserContext(), processor.NewGetBoardCommand(id)), fiber.StatusOK)
}

// GetLegalMoves lists legal moves, or with ?square= the legal targets of one piece
func (h *HTTPHandler) GetLegalMoves(c *fiber.Ctx) error {
	id, err := gameID(c)
	if id == "" {
		return err
	}

	cmd := processor.NewGetLegalMovesCommand(id, c.Query("square"))
	return respond(c, h.proc.Execute(c.UserContext(), cmd), fiber.StatusOK)
}
