package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"llmchess/internal/board"
	"llmchess/internal/notation"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
)

// LineReader is the input side of the loop; *readline.Instance satisfies it
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Handler runs the interactive loop over a session
type Handler struct {
	session *Session
	view    *CLI
	ctx     context.Context
}

func NewHandler(ctx context.Context, session *Session, view *CLI) *Handler {
	return &Handler{
		session: session,
		view:    view,
		ctx:     ctx,
	}
}

// Run reads commands until quit, EOF or context cancellation
func (h *Handler) Run(input LineReader) {
	for h.ctx.Err() == nil {
		input.SetPrompt(h.prompt())

		line, err := input.Readline()
		if err == io.EOF {
			return
		}
		if err != nil {
			// Interrupt clears the line
			continue
		}

		if !h.ProcessCommand(parseCommand(strings.TrimSpace(line))) {
			return
		}
	}
}

func (h *Handler) prompt() string {
	g := h.session.Game()
	if g == nil || g.Status().Terminal() {
		return "> "
	}
	if sq, ok := g.PendingPromotion(); ok {
		return fmt.Sprintf("promote %s (q/r/b/n)> ", sq)
	}
	prompt := fmt.Sprintf("[%s]> ", g.Turn())
	if g.NextPlayer().IsOracle() {
		prompt = "ENTER for oracle move " + prompt
	}
	return prompt
}

// ProcessCommand handles one command; it returns false to exit
func (h *Handler) ProcessCommand(cmd *Command) bool {
	switch cmd.Type {
	case CmdQuit:
		return false

	case CmdNone:
		// Empty line lets an oracle player move
		if g := h.session.Game(); g != nil && !g.Status().Terminal() && g.NextPlayer().IsOracle() {
			h.oracleMove()
		}

	case CmdNew:
		white, black, err := parsePlayers(cmd.Args)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.start(board.InitialState(), white, black)

	case CmdResume:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: resume <FEN string>")
			return true
		}
		st, err := notation.DecodeFEN(strings.Join(cmd.Args, " "))
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.start(st, core.PlayerHuman, core.PlayerHuman)

	case CmdMove:
		h.showResult(h.session.Move(cmd.Args[0]))

	case CmdSelect:
		if len(cmd.Args) != 1 {
			h.view.ShowMessage("Usage: select <square>")
			return true
		}
		sq, err := board.ParseSquare(strings.ToLower(cmd.Args[0]))
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.showResult(h.session.Click(sq))

	case CmdClick:
		if len(cmd.Args) != 2 {
			h.view.ShowMessage("Usage: click <row> <col>")
			return true
		}
		row, err1 := strconv.Atoi(cmd.Args[0])
		col, err2 := strconv.Atoi(cmd.Args[1])
		if err1 != nil || err2 != nil {
			h.view.ShowMessage("Usage: click <row> <col>")
			return true
		}
		h.showResult(h.session.ClickRowCol(row, col))

	case CmdPromote:
		if len(cmd.Args) != 1 {
			h.view.ShowMessage("Usage: promote <q|r|b|n|cancel>")
			return true
		}
		if strings.EqualFold(cmd.Args[0], "cancel") {
			if err := h.session.CancelPromotion(); err != nil {
				h.view.ShowError(err)
				return true
			}
			h.view.ShowMessage("Promotion cancelled")
			h.display()
			return true
		}
		h.showResult(h.session.Promote(strings.ToLower(cmd.Args[0])))

	case CmdOracle:
		h.oracleMove()

	case CmdHint:
		hint, err := h.session.Hint(h.ctx)
		if err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Hint: %s", hint))
		h.display()

	case CmdUndo:
		count := 1
		if len(cmd.Args) > 0 {
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil || n < 1 {
				h.view.ShowMessage("Invalid undo count. Usage: undo [count]")
				return true
			}
			count = n
		}
		if err := h.session.Undo(count); err != nil {
			h.view.ShowError(err)
			return true
		}
		if count == 1 {
			h.view.ShowMessage("Move undone")
		} else {
			h.view.ShowMessage(fmt.Sprintf("%d moves undone", count))
		}
		h.display()

	case CmdFEN:
		if g := h.session.Game(); g != nil {
			h.view.ShowMessage(g.CurrentFEN())
		} else {
			h.view.ShowError(ErrNoGame)
		}

	case CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|brown|green|gray>")
			return true
		}
		theme := ColorTheme(strings.ToLower(cmd.Args[0]))
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		h.display()

	case CmdHistory:
		if g := h.session.Game(); g != nil {
			h.view.ShowGameHistory(g)
		} else {
			h.view.ShowError(ErrNoGame)
		}

	case CmdHelp:
		h.view.ShowHelp()
	}

	return true
}

func parsePlayers(args []string) (core.PlayerType, core.PlayerType, error) {
	types := []core.PlayerType{core.PlayerHuman, core.PlayerHuman}
	if len(args) > 2 {
		return 0, 0, errors.New("usage: new [human|oracle] [human|oracle]")
	}
	for i, arg := range args {
		switch strings.ToLower(arg) {
		case "human", "h":
			types[i] = core.PlayerHuman
		case "oracle", "o":
			types[i] = core.PlayerOracle
		default:
			return 0, 0, fmt.Errorf("unknown player type %q (use human or oracle)", arg)
		}
	}
	return types[0], types[1], nil
}

func (h *Handler) start(st board.State, white, black core.PlayerType) {
	if err := h.session.Start(st, white, black); err != nil {
		h.view.ShowError(err)
		return
	}
	h.view.ShowMessage(fmt.Sprintf("New game: White %s, Black %s", white, black))
	h.display()
}

func (h *Handler) oracleMove() {
	h.view.ShowMessage("Oracle is thinking...")
	h.showResult(h.session.OracleMove(h.ctx))
}

// showResult reports a move attempt and redraws the board
func (h *Handler) showResult(result *game.MoveResult, err error) {
	if err != nil {
		h.view.ShowError(err)
		return
	}
	if result != nil {
		h.view.ShowMove(result)
	}
	h.display()

	g := h.session.Game()
	if sq, ok := g.PendingPromotion(); ok {
		h.view.ShowMessage(fmt.Sprintf("Pawn reaches %s: choose with 'promote <q|r|b|n>'", sq))
		return
	}
	if result != nil {
		h.view.ShowStatus(result.Status, g.Turn())
	}
}

func (h *Handler) display() {
	if g := h.session.Game(); g != nil {
		h.view.DisplayBoard(g.State().Board, h.session.Marks())
	}
}
