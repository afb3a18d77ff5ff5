// Package main runs the chess play server: a REST API over the rules engine that
// schedules oracle moves and optionally persists games to SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"llmchess/cmd/chess-server/cli"
	"llmchess/internal/config"
	"llmchess/internal/logger"
	"llmchess/internal/oracle"
	"llmchess/internal/server/http"
	"llmchess/internal/server/processor"
	"llmchess/internal/server/service"
	"llmchess/internal/server/storage"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	os.Exit(serve(os.Args[1:]))
}

// serve runs the server or a db subcommand and returns the exit code. Deferred
// cleanup, such as removing the PID file, runs before the process exits.
func serve(args []string) int {
	// Check for CLI database commands
	if len(args) > 0 && args[0] == "db" {
		if err := cli.Run(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
			return 1
		}
		return 0
	}

	fs := flag.NewFlagSet("chess-server", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "Path to YAML configuration file")
		apiHost     = fs.String("api-host", "", "API server host (overrides config)")
		apiPort     = fs.Int("api-port", 0, "API server port (overrides config)")
		dev         = fs.Bool("dev", false, "Development mode (relaxed rate limits, WAL journal)")
		storagePath = fs.String("storage-path", "", "Path to SQLite database file (overrides config; persistence disabled if empty)")
		provider    = fs.String("oracle", "", "Oracle provider: none, openai, gemini, cohere, uci (overrides config)")
		logLevel    = fs.String("log-level", "", "Log level (overrides config)")
		pidPath     = fs.String("pid", "", "Optional path to write PID file")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *apiHost != "" {
		cfg.Server.Host = *apiHost
	}
	if *apiPort != 0 {
		cfg.Server.Port = *apiPort
	}
	if *dev {
		cfg.Server.DevMode = true
	}
	if *storagePath != "" {
		cfg.Storage.Path = *storagePath
	}
	if *provider != "" {
		cfg.Oracle.Provider = *provider
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err = cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if *pidPath != "" {
		cleanup, err := writePIDFile(*pidPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to write PID file")
			return 1
		}
		defer cleanup()
	}

	if err = run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	return 0
}

func run(cfg config.Config, log zerolog.Logger) error {
	// 1. Storage (optional)
	var store *storage.Store
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.NewStore(cfg.Storage.Path, cfg.Server.DevMode, log)
		if err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		if err = store.InitDB(); err != nil {
			store.Close()
			return fmt.Errorf("initialize schema: %w", err)
		}
		log.Info().Str("path", cfg.Storage.Path).Msg("persistent storage enabled")
	} else {
		log.Info().Msg("persistent storage disabled (use -storage-path to enable)")
	}

	// 2. Service; owns the store from here on
	svc := service.New(store, log)

	// 3. Oracle (optional) and processor
	o, err := oracle.New(cfg.Oracle)
	if err != nil {
		svc.Shutdown(gracefulShutdownTimeout)
		return fmt.Errorf("initialize oracle: %w", err)
	}
	if o != nil {
		log.Info().Str("oracle", o.Name()).Dur("delay", cfg.Oracle.Delay).Dur("timeout", cfg.Oracle.Timeout).Msg("oracle enabled")
	} else {
		log.Info().Msg("no oracle configured; games are human vs human")
	}
	proc := processor.New(svc, o, cfg, log)

	// 4. HTTP
	app := http.NewFiberApp(proc, svc, cfg.Server)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	listenErr := make(chan error, 1)
	go func() {
		rate := cfg.Server.RateLimit
		if cfg.Server.DevMode {
			rate *= 2
		}
		log.Info().Str("addr", "http://"+addr).Int("rateLimit", rate).Msg("API server starting")
		log.Info().Msgf("API Endpoints: http://%s/api/v1/games", addr)
		log.Info().Msgf("Health: http://%s/health", addr)
		listenErr <- app.Listen(addr)
	}()

	// Wait for an interrupt signal or a listen failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-listenErr:
		log.Error().Err(err).Msg("API server listen error")
	}

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}

	// Stop oracle work before the service drops its games
	if err := proc.Close(); err != nil {
		log.Warn().Err(err).Msg("processor close error")
	}

	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("service shutdown error")
	}

	log.Info().Msg("server exited")
	return err
}
