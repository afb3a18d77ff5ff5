package processor

import (
	"llmchess/internal/server/core"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdCreateGame CommandType = iota
	CmdConfigurePlayers
	CmdGetGame
	CmdDeleteGame
	CmdMakeMove
	CmdPromote
	CmdUndoMove
	CmdGetBoard
	CmdGetLegalMoves
	CmdOracleMove
	CmdHint
)

var commandNames = [...]string{
	CmdCreateGame:       "create_game",
	CmdConfigurePlayers: "configure_players",
	CmdGetGame:          "get_game",
	CmdDeleteGame:       "delete_game",
	CmdMakeMove:         "make_move",
	CmdPromote:          "promote",
	CmdUndoMove:         "undo_move",
	CmdGetBoard:         "get_board",
	CmdGetLegalMoves:    "get_legal_moves",
	CmdOracleMove:       "oracle_move",
	CmdHint:             "hint",
}

func (t CommandType) String() string {
	if t < 0 || int(t) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[t]
}

// Command is one processor operation. Args holds the request DTO for commands
// that carry one.
type Command struct {
	Type   CommandType
	GameID string
	Args   any
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Pending bool                `json:"pending,omitempty"` // an oracle move was scheduled
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

// LegalMovesArgs selects one square; empty means every legal move
type LegalMovesArgs struct {
	Square string
}

func gameCommand(t CommandType, gameID string, args any) Command {
	return Command{Type: t, GameID: gameID, Args: args}
}

func NewCreateGameCommand(req core.CreateGameRequest) Command {
	return Command{Type: CmdCreateGame, Args: req}
}

func NewConfigurePlayersCommand(gameID string, req core.ConfigurePlayersRequest) Command {
	return gameCommand(CmdConfigurePlayers, gameID, req)
}

func NewGetGameCommand(gameID string) Command {
	return gameCommand(CmdGetGame, gameID, nil)
}

func NewMakeMoveCommand(gameID string, req core.MoveRequest) Command {
	return gameCommand(CmdMakeMove, gameID, req)
}

func NewPromoteCommand(gameID string, req core.PromotionRequest) Command {
	return gameCommand(CmdPromote, gameID, req)
}

// NewUndoMoveCommand takes back req.Count plies, one when zero
func NewUndoMoveCommand(gameID string, req core.UndoRequest) Command {
	return gameCommand(CmdUndoMove, gameID, req)
}

func NewDeleteGameCommand(gameID string) Command {
	return gameCommand(CmdDeleteGame, gameID, nil)
}

func NewGetBoardCommand(gameID string) Command {
	return gameCommand(CmdGetBoard, gameID, nil)
}

func NewGetLegalMovesCommand(gameID, square string) Command {
	return gameCommand(CmdGetLegalMoves, gameID, LegalMovesArgs{Square: square})
}

func NewOracleMoveCommand(gameID string) Command {
	return gameCommand(CmdOracleMove, gameID, nil)
}

// NewHintCommand asks the oracle for a suggestion without playing it
func NewHintCommand(gameID string) Command {
	return gameCommand(CmdHint, gameID, nil)
}
