// Package main runs a local chess game in the terminal, human against human or
// against the configured oracle.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"llmchess/internal/cli"
	"llmchess/internal/config"
	"llmchess/internal/oracle"
	"llmchess/internal/server/core"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file")
		provider   = flag.String("oracle", "", "Oracle provider: none, openai, gemini, cohere, uci (overrides config)")
		theme      = flag.String("color", "", "Board color theme: off, brown, green, gray")
	)
	flag.Parse()

	if err := run(*configPath, *provider, *theme); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, provider, theme string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if provider != "" {
		cfg.Oracle.Provider = provider
	}
	if err = cfg.Oracle.Validate(); err != nil {
		return err
	}

	o, err := oracle.New(cfg.Oracle)
	if err != nil {
		return err
	}
	if c, ok := o.(io.Closer); ok {
		defer c.Close()
	}

	// Colours only on a terminal unless asked for
	if theme == "" {
		theme = string(cli.ThemeOff)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			theme = string(cli.ThemeBrown)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := cli.NewSession(o, cfg.Oracle.Timeout, cfg.Oracle.Delay)
	view := cli.New(rl.Stdout(), cli.ColorTheme(theme))
	handler := cli.NewHandler(ctx, session, view)

	view.ShowWelcome(session.OracleName())

	// Default game: human against the oracle when there is one
	black := core.PlayerHuman
	if o != nil {
		black = core.PlayerOracle
	}
	handler.ProcessCommand(&cli.Command{Type: cli.CmdNew, Args: []string{core.PlayerHuman.String(), black.String()}})

	handler.Run(rl)
	return nil
}
