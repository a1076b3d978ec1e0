// Package main contains the entrypoint for the blue-relay-tools service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
	"github.com/NVDUNG1702/blue-relay-tools/internal/config"
	"github.com/NVDUNG1702/blue-relay-tools/internal/decode"
	"github.com/NVDUNG1702/blue-relay-tools/internal/journal"
	"github.com/NVDUNG1702/blue-relay-tools/internal/logger"
	"github.com/NVDUNG1702/blue-relay-tools/internal/relay"
	"github.com/NVDUNG1702/blue-relay-tools/internal/send"
	"github.com/NVDUNG1702/blue-relay-tools/internal/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components (config, logger, stores, decoder,
// verifier, watcher), starts the relay, handles graceful shutdown, and
// returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	chatConn, err := chatdb.Open(cfg.ChatDB.Path)
	if err != nil {
		log.Error("Failed to open chat.db", "path", cfg.ChatDB.Path, "error", err)
		return 1
	}
	defer chatdb.Close(chatConn)
	chatStore := chatdb.NewStore(chatConn, log)

	journalConn, err := journal.NewDB(cfg.Journal.Path)
	if err != nil {
		log.Error("Failed to open journal database", "path", cfg.Journal.Path, "error", err)
		return 1
	}
	defer journal.CloseDB(journalConn)
	journalStore := journal.NewStore(journalConn, log)

	bridge := decode.NewExecBridge(
		log,
		cfg.Decode.BridgeCommand,
		cfg.Decode.BridgeTimeout,
		cfg.Decode.BatchTimeout,
		cfg.Decode.TempDir,
	)
	decoder := decode.New(log, bridge)

	sendAction := send.New(log, cfg.Verify.SendTimeout)
	verifier := verify.New(log, chatStore, sendAction, verify.Options{
		Retries:       cfg.Verify.Retries,
		RetryDelay:    cfg.Verify.RetryDelay,
		FailTimeout:   cfg.Status.FailTimeout,
		CountryPrefix: cfg.Verify.CountryPrefix,
	})

	service := relay.NewService(log, chatStore, journalStore, decoder, verifier, cfg.Status.FailTimeout)

	var watcher *relay.Watcher
	if cfg.Watcher.Enabled {
		watcher = relay.NewWatcher(log, chatStore, journalStore, decoder, nil, cfg.Watcher.BatchSize)
	}

	app, err := relay.NewRelay(log, service, watcher, cfg.Watcher.Interval)
	if err != nil {
		log.Error("Failed to create relay", "error", err)
		return 1
	}

	log.Info("Starting relay...")
	runErr := app.Run(ctx)
	log.Info("Relay run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Relay stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Relay stopped gracefully.")
	return 0
}
