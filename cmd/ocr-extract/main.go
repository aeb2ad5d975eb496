package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/ocr-extract/internal/config"
	"github.com/zombor/ocr-extract/internal/extraction"
	"github.com/zombor/ocr-extract/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	cfg, fs, err := config.Parse("ocr-extract", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, slog.LevelInfo)
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("Initializing provider...", "provider", cfg.Provider, "version", version)
	p, err := cfg.NewProvider()
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		// Keep serving; every extraction reports CONFIG_ERROR until the key is set
		slog.Error("Provider credential is not configured", "error", err)
	case err != nil:
		slog.Error("Failed to initialize provider", "error", err)
		os.Exit(1)
	}
	if p != nil {
		defer p.Close()
	}

	hist, closeHistory, err := cfg.NewHistory()
	if err != nil {
		slog.Error("Failed to initialize history", "error", err)
		os.Exit(1)
	}
	defer closeHistory()
	if hist != nil {
		slog.Info("History enabled", "db", cfg.DBPath, "storage", cfg.StoragePath)
	}

	svc := extraction.NewService(p, cfg.ConvertDocuments())
	srv := server.NewServer(svc, hist, cfg.MaxBodyBytes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

