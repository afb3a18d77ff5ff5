package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"llmchess/internal/board"
	"llmchess/internal/config"
	"llmchess/internal/logger"
	"llmchess/internal/notation"
	"llmchess/internal/oracle"
	"llmchess/internal/rules"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
	"llmchess/internal/server/service"
)

// Processor handles command execution and coordinates the service, the engine
// and the oracle queue
type Processor struct {
	svc         *service.Service
	oracle      oracle.Oracle // nil when no oracle is configured
	queue       *OracleQueue
	hintTimeout time.Duration
	log         zerolog.Logger
}

// New creates a processor; o may be nil, which disables oracle players and hints
func New(svc *service.Service, o oracle.Oracle, cfg config.Config, log zerolog.Logger) *Processor {
	p := &Processor{
		svc:         svc,
		oracle:      o,
		hintTimeout: cfg.Oracle.Timeout,
		log:         logger.Component(log, "processor"),
	}
	if o != nil {
		p.queue = NewOracleQueue(o, cfg.Server.Workers, cfg.Server.QueueSize, cfg.Oracle.Delay, cfg.Oracle.Timeout, log)
	}
	return p
}

func (p *Processor) Execute(ctx context.Context, cmd Command) ProcessorResponse {
	p.log.Debug().Stringer("command", cmd.Type).Str("gameId", cmd.GameID).Msg("executing")

	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdConfigurePlayers:
		return p.handleConfigurePlayers(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdPromote:
		return p.handlePromote(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdGetLegalMoves:
		return p.handleGetLegalMoves(cmd)
	case CmdOracleMove:
		return p.handleOracleMove(cmd)
	case CmdHint:
		return p.handleHint(ctx, cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

func (p *Processor) oracleName() string {
	if p.oracle == nil {
		return ""
	}
	return p.oracle.Name()
}

func (p *Processor) newPlayers(white, black core.PlayerConfig) (*core.Player, *core.Player, error) {
	if p.oracle == nil && (white.Type == core.PlayerOracle || black.Type == core.PlayerOracle) {
		return nil, nil, errors.New("no oracle configured on this server")
	}
	return core.NewPlayer(white, board.White, p.oracleName()),
		core.NewPlayer(black, board.Black, p.oracleName()), nil
}

// handleCreateGame creates a new game and schedules an oracle move if the oracle moves first
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	initial := board.InitialState()
	fen := strings.TrimSpace(args.FEN)
	switch {
	case fen != "" && args.Board != nil:
		return p.errorResponse("fen and board cannot both be given", core.ErrInvalidRequest)
	case fen != "":
		st, err := notation.DecodeFEN(fen)
		if err != nil {
			return p.errorDetails("invalid FEN", core.ErrInvalidFEN, err)
		}
		if msg := missingKing(st.Board); msg != "" {
			return p.errorResponse("invalid FEN: "+msg, core.ErrInvalidFEN)
		}
		initial = st
	case args.Board != nil:
		st, err := stateFromGrid(*args.Board, args.Turn)
		if err != nil {
			return p.errorDetails("invalid board", core.ErrInvalidRequest, err)
		}
		if msg := missingKing(st.Board); msg != "" {
			return p.errorResponse("invalid board: "+msg, core.ErrInvalidRequest)
		}
		initial = st
	}

	whitePlayer, blackPlayer, err := p.newPlayers(args.White, args.Black)
	if err != nil {
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	gameID := p.svc.GenerateGameID()
	g, err := p.svc.CreateGame(gameID, whitePlayer, blackPlayer, initial)
	if err != nil {
		return p.errorDetails("failed to create game", core.ErrInternalError, err)
	}

	pending := p.scheduleOracle(gameID, g)
	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    p.buildGameResponse(gameID, g),
	}
}

func missingKing(b board.Board) string {
	for _, c := range []board.Color{board.White, board.Black} {
		if _, ok := b.KingSquare(c); !ok {
			return c.Name() + " king missing"
		}
	}
	return ""
}

// stateFromGrid builds a starting state from piece codes. White moves when
// turn is empty. A side keeps a castling right while its king and that rook
// stand on their home squares.
func stateFromGrid(grid [8][8]string, turn string) (board.State, error) {
	b, err := board.FromGrid(grid)
	if err != nil {
		return board.State{}, err
	}
	st := board.State{Board: b, Turn: board.White, EnPassant: board.NoSquare, FullMove: 1}
	if turn != "" {
		if st.Turn, err = board.ParseColor(turn); err != nil {
			return board.State{}, err
		}
	}

	home := func(c board.Color, col int, t board.PieceType) bool {
		return b.At(board.Square{Row: board.HomeRow(c), Col: col}) == board.Piece{Color: c, Type: t}
	}
	st.Castling = board.CastlingRights{
		WhiteKingside:  home(board.White, 4, board.King) && home(board.White, 7, board.Rook),
		WhiteQueenside: home(board.White, 4, board.King) && home(board.White, 0, board.Rook),
		BlackKingside:  home(board.Black, 4, board.King) && home(board.Black, 7, board.Rook),
		BlackQueenside: home(board.Black, 4, board.King) && home(board.Black, 0, board.Rook),
	}
	return st, nil
}

// handleConfigurePlayers updates player configuration mid-game
func (p *Processor) handleConfigurePlayers(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ConfigurePlayersRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	// Block configuration changes during an oracle move
	if g.OraclePending() {
		return p.errorResponse("cannot change players while the oracle is thinking", core.ErrOracleBusy)
	}

	whitePlayer, blackPlayer, err := p.newPlayers(args.White, args.Black)
	if err != nil {
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	if err = p.svc.UpdatePlayers(cmd.GameID, whitePlayer, blackPlayer); err != nil {
		return p.gameError(err)
	}

	pending := p.scheduleOracle(cmd.GameID, g)
	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Pending: g.OraclePending(),
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleMakeMove processes human moves
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if resp, blocked := p.checkPlayable(g); blocked {
		return resp
	}
	if g.NextPlayer().IsOracle() {
		return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
	}

	m, err := notation.DecodeCoordinatePromotion(strings.ToLower(strings.TrimSpace(args.Move)))
	if err != nil {
		return p.errorDetails("invalid move format", core.ErrMalformedNotation, err)
	}

	result, err := g.Play(m)
	if err != nil {
		return p.gameError(err)
	}
	return p.afterMove(cmd.GameID, g, result)
}

// handlePromote completes a pending promotion
func (p *Processor) handlePromote(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.PromotionRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	piece, err := notation.DecodePromotion(strings.ToLower(args.Piece))
	if err != nil {
		return p.errorDetails("invalid promotion piece", core.ErrMalformedNotation, err)
	}

	result, err := g.Promote(piece)
	if err != nil {
		return p.gameError(err)
	}
	return p.afterMove(cmd.GameID, g, result)
}

// afterMove records an applied move, or reports a promotion that awaits a piece
func (p *Processor) afterMove(gameID string, g *game.Game, result *game.MoveResult) ProcessorResponse {
	if result == nil {
		p.svc.NotifyGame(gameID)
		return ProcessorResponse{
			Success: true,
			Data:    p.buildGameResponse(gameID, g),
		}
	}

	p.svc.RecordMove(gameID, g, result)
	pending := p.scheduleOracle(gameID, g)

	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    p.buildGameResponse(gameID, g),
	}
}

// checkPlayable rejects moves while the oracle thinks or after the game ended
func (p *Processor) checkPlayable(g *game.Game) (ProcessorResponse, bool) {
	if g.OraclePending() {
		return p.errorResponse("oracle move in progress", core.ErrOracleBusy), true
	}
	if status := g.Status(); status.Terminal() {
		return p.errorResponse(fmt.Sprintf("game is over: %s", status), core.ErrGameOver), true
	}
	return ProcessorResponse{}, false
}

// handleUndoMove reverts game state
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if g.OraclePending() {
		return p.errorResponse("cannot undo while the oracle is thinking", core.ErrOracleBusy)
	}

	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	if err = p.svc.UndoMoves(cmd.GameID, args.Count); err != nil {
		if errors.Is(err, service.ErrGameNotFound) || errors.Is(err, game.ErrOracleBusy) {
			return p.gameError(err)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleDeleteGame removes a game and cancels its oracle task
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	if p.queue != nil {
		p.queue.Cancel(cmd.GameID)
	}

	if err := p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
	}
}

// handleGetBoard returns board visualization
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	st := g.State()
	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			FEN:   notation.EncodeFEN(st),
			Board: st.Board.ToASCII(),
			Grid:  st.Board.Grid(),
		},
	}
}

// handleGetLegalMoves lists legal moves, or the targets of one square
func (p *Processor) handleGetLegalMoves(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	args, _ := cmd.Args.(LegalMovesArgs)
	if args.Square == "" {
		moves := []string{}
		for _, m := range g.LegalMoves() {
			moves = append(moves, notation.EncodeCoordinate(m))
		}
		return ProcessorResponse{
			Success: true,
			Data:    core.LegalMovesResponse{Moves: moves},
		}
	}

	from, err := board.ParseSquare(strings.ToLower(args.Square))
	if err != nil {
		return p.errorDetails("invalid square", core.ErrMalformedNotation, err)
	}
	targets := []string{}
	for _, to := range g.LegalTargets(from) {
		targets = append(targets, to.String())
	}
	return ProcessorResponse{
		Success: true,
		Data:    core.LegalMovesResponse{Square: from.String(), Moves: targets},
	}
}

// handleOracleMove schedules an oracle move for an oracle player, e.g. to retry after a failure
func (p *Processor) handleOracleMove(cmd Command) ProcessorResponse {
	if p.queue == nil {
		return p.errorResponse("no oracle configured on this server", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if resp, blocked := p.checkPlayable(g); blocked {
		return resp
	}
	if !g.NextPlayer().IsOracle() {
		return p.errorResponse("not oracle player's turn", core.ErrNotOracleTurn)
	}
	if _, pending := g.PendingPromotion(); pending {
		return p.errorResponse("promotion choice pending", core.ErrPromotionPending)
	}

	if !p.scheduleOracle(cmd.GameID, g) {
		return p.errorResponse("failed to schedule oracle move", core.ErrOracleFailure)
	}
	return ProcessorResponse{
		Success: true,
		Pending: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleHint asks the oracle for a suggestion for a human player; nothing is applied
func (p *Processor) handleHint(ctx context.Context, cmd Command) ProcessorResponse {
	if p.oracle == nil {
		return p.errorResponse("no oracle configured on this server", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if resp, blocked := p.checkPlayable(g); blocked {
		return resp
	}
	if g.NextPlayer().IsOracle() {
		return p.errorResponse("hints are for human players", core.ErrNotHumanTurn)
	}
	if _, pending := g.PendingPromotion(); pending {
		return p.errorResponse("promotion choice pending", core.ErrPromotionPending)
	}

	ctx, cancel := context.WithTimeout(ctx, p.hintTimeout)
	defer cancel()

	req := p.oracleRequest(g)
	req.Hint = true
	suggestion, err := p.oracle.SuggestMove(ctx, req)
	if err != nil {
		return p.errorDetails("oracle failed to suggest a move", core.ErrOracleFailure, err)
	}

	m, err := notation.DecodeCoordinatePromotion(suggestion)
	if err != nil {
		return p.errorDetails("oracle returned a malformed move", core.ErrOracleFailure, err)
	}
	st := g.State()
	if !rules.IsLegal(st.Board, m, st.Castling, st.EnPassant) || st.Board.At(m.From).Color != st.Turn {
		return p.errorResponse(fmt.Sprintf("oracle suggested illegal move %s", suggestion), core.ErrOracleFailure)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.HintResponse{
			Move:      suggestion,
			Algebraic: notation.Algebraic(st.Board, m),
			Oracle:    p.oracle.Name(),
		},
	}
}

func (p *Processor) oracleRequest(g *game.Game) oracle.Request {
	return oracle.Request{
		FEN:     g.CurrentFEN(),
		Turn:    g.Turn().Name(),
		History: g.Moves(),
	}
}

// scheduleOracle queues an oracle move when an oracle player is to move
func (p *Processor) scheduleOracle(gameID string, g *game.Game) bool {
	if p.queue == nil || !g.NextPlayer().IsOracle() {
		return false
	}
	if err := g.BeginOracle(); err != nil {
		return false
	}

	req := p.oracleRequest(g)
	err := p.queue.SubmitAsync(gameID, req, func(result OracleResult) {
		p.completeOracle(gameID, req.FEN, result)
	})
	if err != nil {
		p.log.Warn().Err(err).Str("gameId", gameID).Msg("oracle move not scheduled")
		g.EndOracle(err)
		return false
	}
	p.svc.NotifyGame(gameID)
	return true
}

// completeOracle applies an oracle answer. On any failure the position is left
// as it was and the failure is recorded on the game.
func (p *Processor) completeOracle(gameID, fen string, result OracleResult) {
	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return // Game was deleted
	}

	moveResult, err := p.applyOracleMove(g, fen, result)
	if err != nil {
		p.log.Warn().Err(err).Str("gameId", gameID).Msg("oracle move rejected")
		g.EndOracle(err)
		p.svc.NotifyGame(gameID)
		return
	}

	g.EndOracle(nil)
	p.svc.RecordMove(gameID, g, moveResult)
	p.scheduleOracle(gameID, g)
}

func (p *Processor) applyOracleMove(g *game.Game, fen string, result OracleResult) (*game.MoveResult, error) {
	if result.Error != nil {
		return nil, result.Error
	}
	if g.CurrentFEN() != fen {
		return nil, fmt.Errorf("position changed while the oracle was thinking")
	}

	m, err := notation.DecodeCoordinatePromotion(result.Move)
	if err != nil {
		return nil, &oracle.Error{Oracle: result.Oracle, Err: err}
	}
	moveResult, err := g.PlayOracle(m, result.Oracle)
	if err != nil {
		return nil, &oracle.Error{Oracle: result.Oracle, Err: fmt.Errorf("move %s: %w", result.Move, err)}
	}
	return moveResult, nil
}

// buildGameResponse constructs standard game response
func (p *Processor) buildGameResponse(gameID string, g *game.Game) core.GameResponse {
	st := g.State()
	status := g.Status()

	resp := core.GameResponse{
		GameID:      gameID,
		FEN:         g.CurrentFEN(),
		Turn:        st.Turn.String(),
		Status:      status.String(),
		Outcome:     core.Outcome(status, st.Turn),
		Moves:       g.Moves(),
		Coordinates: g.Coordinates(),
		Transcript:  g.Transcript(),
		Players: core.PlayersResponse{
			White: g.GetPlayer(board.White),
			Black: g.GetPlayer(board.Black),
		},
		OraclePending: g.OraclePending(),
		OracleError:   g.OracleError(),
		HalfMove:      st.HalfMove,
		FullMove:      st.FullMove,
	}

	if sq, ok := g.PendingPromotion(); ok {
		resp.PromotionPending = sq.String()
	}

	if result := g.LastResult(); result != nil {
		resp.LastMove = &core.MoveInfo{
			Move:        result.Coordinate,
			Algebraic:   result.Algebraic,
			PlayerColor: result.Color.String(),
			Oracle:      result.Oracle,
		}
		if !result.Captured.IsEmpty() {
			resp.LastMove.Captured = result.Captured.Code()
		}
	}

	return resp
}

// gameError maps domain errors to error responses
func (p *Processor) gameError(err error) ProcessorResponse {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return p.errorResponse("game not found", core.ErrGameNotFound)
	case errors.Is(err, game.ErrIllegalMove):
		return p.errorResponse("illegal move", core.ErrInvalidMove)
	case errors.Is(err, rules.ErrInvalidPromotion):
		return p.errorDetails("invalid promotion", core.ErrInvalidMove, err)
	case errors.Is(err, game.ErrPromotionPending):
		return p.errorResponse("promotion choice pending", core.ErrPromotionPending)
	case errors.Is(err, game.ErrNoPromotionPending):
		return p.errorResponse("no promotion pending", core.ErrNoPromotionPending)
	case errors.Is(err, game.ErrGameOver):
		return p.errorResponse("game is over", core.ErrGameOver)
	case errors.Is(err, game.ErrOracleBusy):
		return p.errorResponse("oracle move in progress", core.ErrOracleBusy)
	case errors.Is(err, notation.ErrMalformed):
		return p.errorDetails("malformed notation", core.ErrMalformedNotation, err)
	default:
		return p.errorDetails("internal error", core.ErrInternalError, err)
	}
}

func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

func (p *Processor) errorDetails(message, code string, err error) ProcessorResponse {
	resp := p.errorResponse(message, code)
	resp.Error.Details = err.Error()
	return resp
}

// Close stops the oracle queue and releases the oracle
func (p *Processor) Close() error {
	var errs []error
	if p.queue != nil {
		if err := p.queue.Shutdown(5 * time.Second); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := p.oracle.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
