package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"llmchess/internal/server/storage"
)

// Run is the entry point for the database maintenance commands
func Run(args []string) error {
	return run(args, os.Stdin, os.Stdout)
}

func run(args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, moves")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:], out)
	case "delete":
		return runDelete(args[1:], in, out)
	case "query":
		return runQuery(args[1:], out)
	case "moves":
		return runMoves(args[1:], out)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func openStore(fs *flag.FlagSet, args []string, extra func()) (*storage.Store, error) {
	path := fs.String("path", "", "Database file path (required)")
	if extra != nil {
		extra()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path == "" {
		return nil, fmt.Errorf("database path required")
	}
	return storage.NewStore(*path, false, zerolog.Nop())
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	store, err := openStore(fs, args, nil)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(out, "Database initialized at: %s\n", fs.Lookup("path").Value)
	return nil
}

func runDelete(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	var force *bool
	store, err := openStore(fs, args, func() {
		force = fs.Bool("force", false, "Skip confirmation prompt")
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	path := fs.Lookup("path").Value.String()

	// Ask only when a person is at the keyboard
	if !*force && isTerminal(in) {
		fmt.Fprintf(out, "Delete %s and all recorded games? [y/N] ", path)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			store.Close()
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(out, "Database deleted: %s\n", path)
	return nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	var gameID, playerID *string
	store, err := openStore(fs, args, func() {
		gameID = fs.String("gameId", "", "Game ID to filter (optional, * for all)")
		playerID = fs.String("playerId", "", "Player ID to filter (optional, * for all)")
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	games, err := store.QueryGames(*gameID, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite\tBlack\tStart Time\tInitial FEN")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			g.GameID,
			playerInfo(g.WhitePlayerID, g.WhiteType, g.WhiteOracle),
			playerInfo(g.BlackPlayerID, g.BlackType, g.BlackOracle),
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
			g.InitialFEN,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func playerInfo(id string, playerType int, oracleName string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	if oracleName != "" {
		return fmt.Sprintf("%s (T%d %s)", id, playerType, oracleName)
	}
	return fmt.Sprintf("%s (T%d)", id, playerType)
}

func runMoves(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("moves", flag.ContinueOnError)
	var gameID *string
	store, err := openStore(fs, args, func() {
		gameID = fs.String("gameId", "", "Game ID (required)")
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if *gameID == "" {
		return fmt.Errorf("game ID required")
	}

	moves, err := store.QueryMoves(*gameID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(moves) == 0 {
		fmt.Fprintln(out, "No moves found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tColor\tMove\tSAN\tOracle\tTime\tFEN After")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, m := range moves {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.MoveNumber,
			m.PlayerColor,
			m.Coordinate,
			m.Algebraic,
			m.Oracle,
			m.MoveTimeUTC.Format("15:04:05"),
			m.FENAfterMove,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d move(s)\n", len(moves))
	return nil
}
