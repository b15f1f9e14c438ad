package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nexus/internal/api"
	"nexus/internal/catalog"
	"nexus/internal/config"
	"nexus/internal/executor"
	"nexus/internal/files"
	"nexus/internal/monitor"
	"nexus/internal/runtime"
	"nexus/internal/storage"
	"nexus/internal/tui"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
	}

	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal().Err(err).Msg("invalid environment override")
	}

	closeLog := setupLogging(cfg)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitor.NewMetrics()
	tracer := monitor.NewTracer()

	// Execution history is optional; everything else works without it.
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, execution history disabled")
			db = nil
		} else if err := prepareHistory(ctx, db); err != nil {
			log.Warn().Err(err).Msg("execution history disabled")
			db = nil
		} else {
			defer db.Close()
		}
	}

	var historyWriter *storage.HistoryWriter
	if db != nil {
		historyWriter = storage.NewHistoryWriter(db, cfg.Database.HistoryBuffer)
		historyWriter.Start()
		defer historyWriter.Flush(10 * time.Second)
	}

	fileService := files.NewService(files.Options{
		Root:    cfg.Files.Root,
		Confine: cfg.Files.Confine,
		Metrics: metrics,
		Tracer:  tracer,
	})

	runner := executor.NewRunner(executor.RunnerOptions{
		TempDir:   cfg.Execution.TempDir,
		MaxOutput: cfg.Execution.MaxOutputBytes,
		Timeout:   cfg.Execution.Timeout,
	})
	if _, err := runner.CleanupOrphaned(time.Hour); err != nil {
		log.Warn().Err(err).Msg("orphaned capture cleanup failed")
	}

	execOpts := executor.Options{
		Files:       fileService,
		Table:       runtime.NewTable(),
		Runner:      runner,
		Metrics:     metrics,
		Tracer:      tracer,
		StrictNames: cfg.Execution.StrictFilenames,
	}
	if historyWriter != nil {
		execOpts.History = historyWriter
	}
	exec := executor.New(execOpts)

	known := catalog.NewKnownFiles(cfg.UI.KnownFilesCap, metrics)

	watcher, err := catalog.NewWatcher(known)
	if err != nil {
		log.Warn().Err(err).Msg("file watcher unavailable, deleted files stay in the known list")
	} else {
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.WebEnabled() {
		deps := api.Deps{Files: fileService, Executor: exec, Known: known}
		if db != nil {
			deps.History = db
		}
		server = api.NewServer(cfg, deps, metrics)

		log.Info().
			Str("addr", cfg.Address()).
			Str("root", fileService.Root()).
			Bool("db_enabled", db != nil).
			Bool("tls", cfg.TLS.Enabled).
			Msg("server starting")

		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	menuDone := make(chan error, 1)
	if cfg.TerminalEnabled() {
		menu := tui.New(tui.Options{
			In:       os.Stdin,
			Out:      os.Stdout,
			Files:    fileService,
			Executor: exec,
			Known:    known,
		})
		go func() {
			menuDone <- menu.Run(ctx)
		}()
	}

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-menuDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("terminal UI failed")
		}
		log.Info().Msg("terminal UI closed, shutting down")
	case err, ok := <-serverErr:
		if ok {
			log.Error().Err(err).Msg("server failed")
		}
	}

	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	log.Info().Msg("server stopped")
}

type historySchema interface {
	Migrate(ctx context.Context) error
	Close()
}

// prepareHistory creates the history schema, closing db when that fails.
func prepareHistory(ctx context.Context, db historySchema) error {
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("history migration failed: %w", err)
	}
	return nil
}

// setupLogging applies the configured level and destination. When the
// terminal UI shares the console and a log file is configured, logs go to
// the file so they do not interleave with the menu.
func setupLogging(cfg *config.Config) func() {
	if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && cfg.Logging.Level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.Logging.File == "" {
		if cfg.TerminalEnabled() {
			log.Warn().Msg("terminal UI enabled without logging.file; logs will share the console")
		}
		return func() {}
	}

	f, err := os.OpenFile(filepath.Clean(cfg.Logging.File), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) // #nosec G304 -- path comes from config
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Logging.File).Msg("cannot open log file, logging to stderr")
		return func() {}
	}

	var out io.Writer = f
	if os.Getenv("ENV") != "production" {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return func() { _ = f.Close() }
}
