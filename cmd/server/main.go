// Package main provides the entry point for the rawhttp server.
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
	"time"

	"github.com/goceleris/rawhttp/internal/config"
	"github.com/goceleris/rawhttp/internal/handlers"
	"github.com/goceleris/rawhttp/internal/server"
	"github.com/goceleris/rawhttp/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if info, err := os.Stat(cfg.Directory); err != nil || !info.IsDir() {
		logger.Warn("storage directory is not accessible", "directory", cfg.Directory, "error", err)
	}

	var ledger handlers.Ledger
	if cfg.LedgerDir != "" {
		db, err := store.New(cfg.LedgerDir)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		go db.RunGC(ctx, 5*time.Minute)

		pruned, err := db.Prune(func(name string) bool {
			info, err := os.Stat(filepath.Join(cfg.Directory, name))
			return err == nil && info.Mode().IsRegular()
		})
		if err != nil {
			logger.Warn("failed to prune upload ledger", "error", err)
		}
		if uploads, err := db.List(0); err == nil {
			logger.Info("upload ledger opened", "dir", cfg.LedgerDir, "uploads", len(uploads), "pruned", pruned)
		}
		ledger = db
	}

	routes, err := handlers.Routes(cfg.Directory, ledger, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, routes, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutting down", "signal", sig.String())
		_ = srv.Close()
	}()

	err = srv.Run(ctx)
	if errors.Is(err, server.ErrServerClosed) {
		logger.Info("server stopped", "accepted_conns", srv.AcceptedConns(),
			"active_conns", srv.ActiveConns())
		return nil
	}
	return err
}
