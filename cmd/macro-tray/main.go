package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/macro-tray/internal/app"
	"github.com/petems/macro-tray/internal/config"
	"github.com/petems/macro-tray/internal/eventhub"
	"github.com/petems/macro-tray/internal/feedback"
	"github.com/petems/macro-tray/internal/hotkey"
	"github.com/petems/macro-tray/internal/inject"
	"github.com/petems/macro-tray/internal/logging"
	"github.com/petems/macro-tray/internal/permissions"
	"github.com/petems/macro-tray/internal/store"
	"github.com/petems/macro-tray/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, Version, Commit) // App reference set below

	status := app.Fanout{trayUI, feedback.New(cfg.Feedback, log)}

	if cfg.StatusAddr != "" {
		hub := eventhub.New(cfg.StatusAddr, log)
		if err := hub.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start status server")
		} else {
			defer hub.Stop()
			status = append(status, hub)
		}
	}

	// Create app with tray as status updater. Missing macOS permissions
	// degrade the listener instead of exiting so the tray can report them.
	application := app.New(app.Config{
		Source:        hotkey.NewSource(log),
		Sender:        inject.New(cfg.Inject, log),
		Store:         store.New(cfg.DataFile, log),
		Config:        cfg,
		Logger:        log,
		StatusUpdater: status,
		Preflight:     permissions.EnsurePermissions,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	if err := application.Load(); err != nil {
		log.Error().Err(err).Msg("Starting with no hotkeys")
	}
	if cfg.WatchDataFile {
		if err := application.Watch(); err != nil {
			log.Warn().Err(err).Msg("Hotkeys file will not be reloaded on change")
		}
	}

	if cfg.StartActive {
		err = application.Start()
	} else {
		err = application.Listen()
	}
	if err != nil {
		log.Error().Err(err).Msg("Hotkeys unavailable until the input hook can be installed")
	}

	log.Info().Str("version", Version).Str("data", cfg.DataFile).Msg("MacroTray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		shutdownCtx, stop := context.WithTimeout(ctx, 3*time.Second)
		defer stop()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}
