// Package main is the entry point for the plantkeeper HTTP server.
//
// main stays minimal:
//  1. Read configuration (.env file, then environment variables)
//  2. Build the logger
//  3. Hand both to internal/server and block until shutdown
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/plantkeeper/internal/config"
	"github.com/sakif/plantkeeper/internal/logging"
	"github.com/sakif/plantkeeper/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "plantkeeper:", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. READ CONFIGURATION ===
	// Load returns every invalid setting at once (errors.Join), so a bad
	// deployment shows all of its problems on the first start.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. SET UP LOGGING ===
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
