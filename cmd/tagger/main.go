package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jscyril/wavtagger/internal/app"
	"github.com/jscyril/wavtagger/internal/audio"
	"github.com/jscyril/wavtagger/internal/config"
	"github.com/jscyril/wavtagger/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Environment from .env, if present
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create data directory
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "wavtagger.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	initLogger(logFile, os.Getenv("TAGGER_DEBUG") != "")

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("signal received, shutting down")
		cancel()
	}()

	tagger := app.New(app.Options{
		Device:          audio.NewSpeakerDevice(cfg.SpeakerBuffer()),
		ExportDir:       cfg.ExportDir,
		RefreshInterval: cfg.RefreshInterval(),
		Logger:          slog.Default(),
	})
	defer func() {
		if err := tagger.Close(); err != nil {
			slog.Warn("release audio output", "error", err)
		}
	}()

	slog.Info("starting", "config", configPath, "data_dir", cfg.DataDir, "export_dir", cfg.ExportDir)

	// Optional recording to open at startup
	if len(os.Args) > 1 {
		path := os.Args[1]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := tagger.Load(ctx, filepath.Base(path), data); err != nil {
			return err
		}
	}

	// Run UI
	if err := ui.Run(ctx, tagger, cfg); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}

	return nil
}

func initLogger(f *os.File, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})))
}
