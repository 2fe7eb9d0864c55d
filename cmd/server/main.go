package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/plazalabs/plaza/internal/chat"
	"github.com/plazalabs/plaza/internal/config"
	"github.com/plazalabs/plaza/internal/gateway"
	"github.com/plazalabs/plaza/internal/presence"
	"github.com/plazalabs/plaza/internal/storage/sqlite"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	presenceStore, err := presence.NewBadgerStore(cfg.Presence)
	if err != nil {
		log.Error("init presence cache", "error", err)
		os.Exit(1)
	}
	defer presenceStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		log.Error("migrate storage", "error", err)
		os.Exit(1)
	}

	hub := gateway.NewHub()
	coord := gateway.NewCoordinator(presenceStore, hub, cfg.Presence.StoreTimeout, log)
	chatService := chat.NewService(store, coord, log)
	app := gateway.NewApp(cfg, coord, hub, chatService, log)

	log.Info("gateway listening", "addr", cfg.ListenAddr)
	if err := app.Run(ctx); err != nil {
		log.Error("server shutdown", "error", err)
		os.Exit(1)
	}
}
