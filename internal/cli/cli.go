package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"llmchess/internal/board"
	"llmchess/internal/rules"
	"llmchess/internal/server/core"
	"llmchess/internal/server/game"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdSelect
	CmdClick
	CmdPromote
	CmdOracle
	CmdHint
	CmdUndo
	CmdFEN
	CmdColor
	CmdHistory
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg  string
	darkBg   string
	selectBg string
	targetBg string
	lastBg   string
	white    string
	black    string
	reset    string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg:  "\033[48;5;230m", // Beige
		darkBg:   "\033[48;5;94m",  // Brown
		selectBg: "\033[48;5;220m",
		targetBg: "\033[48;5;150m",
		lastBg:   "\033[48;5;186m",
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    "\033[0m",
	},
	ThemeGreen: {
		lightBg:  "\033[48;5;157m", // Light green
		darkBg:   "\033[48;5;22m",  // Dark green
		selectBg: "\033[48;5;220m",
		targetBg: "\033[48;5;117m",
		lastBg:   "\033[48;5;186m",
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    "\033[0m",
	},
	ThemeGray: {
		lightBg:  "\033[48;5;251m", // Light gray
		darkBg:   "\033[48;5;240m", // Dark gray
		selectBg: "\033[48;5;220m",
		targetBg: "\033[48;5;110m",
		lastBg:   "\033[48;5;180m",
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    "\033[0m",
	},
}

// Marks are the squares the board display emphasises
type Marks struct {
	Selected board.Square
	Targets  []board.Square
	Hint     []board.Square
	Last     []board.Square
}

// NoMarks has nothing selected
func NoMarks() Marks {
	return Marks{Selected: board.NoSquare}
}

// CLI renders game state to a terminal
type CLI struct {
	output io.Writer
	theme  ColorTheme
}

func New(output io.Writer, theme ColorTheme) *CLI {
	if _, ok := themes[theme]; !ok {
		theme = ThemeOff
	}
	return &CLI{
		output: output,
		theme:  theme,
	}
}

func parseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume":
		return &Command{Type: CmdResume, Args: args, Raw: input}
	case "select", "s":
		return &Command{Type: CmdSelect, Args: args}
	case "click":
		return &Command{Type: CmdClick, Args: args}
	case "promote":
		return &Command{Type: CmdPromote, Args: args}
	case "oracle":
		return &Command{Type: CmdOracle}
	case "hint":
		return &Command{Type: CmdHint}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "fen":
		return &Command{Type: CmdFEN}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "history":
		return &Command{Type: CmdHistory}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		// Assume it's a move
		return &Command{Type: CmdMove, Args: []string{cmd}}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	c.theme = theme
	return nil
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v", err))
}

// DisplayBoard draws the position. Without colours, the selected square is shown
// in brackets and its legal targets with '*' (or '+' under a piece).
func (c *CLI) DisplayBoard(b board.Board, marks Marks) {
	theme := themes[c.theme]
	var sb strings.Builder

	sb.WriteString("\n   a  b  c  d  e  f  g  h\n")

	for r := 0; r < 8; r++ {
		fmt.Fprintf(&sb, "%d ", 8-r)
		for f := 0; f < 8; f++ {
			sq := board.Square{Row: r, Col: f}
			piece := b.At(sq)
			selected := sq == marks.Selected
			target := slices.Contains(marks.Targets, sq) || slices.Contains(marks.Hint, sq)

			if c.theme == ThemeOff {
				sb.WriteString(plainCell(piece, selected, target))
				continue
			}

			bg := theme.darkBg
			if (r+f)%2 == 0 {
				bg = theme.lightBg
			}
			switch {
			case selected:
				bg = theme.selectBg
			case target:
				bg = theme.targetBg
			case slices.Contains(marks.Last, sq):
				bg = theme.lastBg
			}

			if piece.IsEmpty() {
				fmt.Fprintf(&sb, "%s   %s", bg, theme.reset)
			} else {
				color := theme.black
				if piece.Color == board.White {
					color = theme.white
				}
				fmt.Fprintf(&sb, "%s%s %c %s", bg, color, piece.FENLetter(), theme.reset)
			}
		}
		fmt.Fprintf(&sb, " %d\n", 8-r)
	}
	sb.WriteString("   a  b  c  d  e  f  g  h\n")

	c.ShowMessage(sb.String())
}

func plainCell(piece board.Piece, selected, target bool) string {
	ch := byte('.')
	if !piece.IsEmpty() {
		ch = piece.FENLetter()
	}
	switch {
	case selected:
		return fmt.Sprintf("[%c]", ch)
	case target && piece.IsEmpty():
		return " * "
	case target:
		return fmt.Sprintf("+%c ", ch)
	default:
		return fmt.Sprintf(" %c ", ch)
	}
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new [w] [b]      - Start a new game; w/b are human (default) or oracle
  resume <FEN>     - Resume from a specific board position (human vs human)
  <move>           - Make a move (e.g., e2e4, g1f3, e7e8q)
  select <sq>      - Click a square: select a piece, or move the selected piece there
  click <row> <col>- Click by board coordinates (row 0 is rank 8, col 0 is file a)
  promote <piece>  - Finish a promotion (q|r|b|n), or 'cancel' to take the pawn back
  oracle           - Ask the oracle to move for the side to move
  hint             - Ask the oracle for a suggestion
  undo [count]     - Undo last move(s), default 1
  fen              - Show the current position in FEN
  color <theme>    - Set board color theme (off|brown|green|gray)
  history          - Show game move history
  quit/exit        - Exit the program
  help/?           - Show this help message

Press ENTER on an oracle player's turn to let the oracle move.`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome(oracleName string) {
	c.ShowMessage("Welcome to Chess!")
	if oracleName != "" {
		c.ShowMessage(fmt.Sprintf("Oracle: %s", oracleName))
	} else {
		c.ShowMessage("No oracle configured; oracle players and hints are unavailable.")
	}
	c.ShowMessage("Example: 'resume 4k3/8/8/8/8/8/8/4K2R w K - 0 1' to start from a puzzle.")
	c.ShowMessage("Type 'help' for commands.")
	c.ShowMessage("")
}

func (c *CLI) ShowGameHistory(g *game.Game) {
	c.ShowMessage(fmt.Sprintf("Starting FEN: %s", g.InitialFEN()))

	moves := g.Moves()
	for i := 0; i < len(moves); i += 2 {
		moveNum := i/2 + 1
		if i+1 < len(moves) {
			c.ShowMessage(fmt.Sprintf("%d. %s | %s", moveNum, moves[i], moves[i+1]))
		} else {
			c.ShowMessage(fmt.Sprintf("%d. %s | ...", moveNum, moves[i]))
		}
	}
	c.ShowMessage(fmt.Sprintf("Current FEN: %s", g.CurrentFEN()))
	c.ShowMessage(fmt.Sprintf("Game state: %s", g.Status()))
}

func sideName(c board.Color) string {
	if c == board.White {
		return "White"
	}
	return "Black"
}

func (c *CLI) ShowMove(result *game.MoveResult) {
	who := sideName(result.Color)
	if result.Oracle != "" {
		who += " (" + result.Oracle + ")"
	}
	c.ShowMessage(fmt.Sprintf("%s: %s", who, result.Algebraic))
}

func (c *CLI) ShowStatus(status rules.Status, toMove board.Color) {
	switch status {
	case rules.Check:
		c.ShowMessage(fmt.Sprintf("%s is in check.", sideName(toMove)))
	case rules.Checkmate, rules.Stalemate:
		c.ShowMessage(fmt.Sprintf("\nGame Over: %s (%s)", status, core.Outcome(status, toMove)))
		c.ShowMessage("Start a new game with 'new' or 'resume'.")
	}
}
