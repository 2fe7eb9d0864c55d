package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/plazalabs/plaza/internal/auth"
	"github.com/plazalabs/plaza/internal/config"
	"github.com/plazalabs/plaza/internal/storage"
	"github.com/plazalabs/plaza/internal/storage/sqlite"
)

// useradd provisions an account so nickname resolution and token subjects
// have backing data. Token issuance itself lives outside this repo.
func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	username := flag.String("username", "", "login name (unique)")
	nickname := flag.String("nickname", "", "display name shown in rooms")
	password := flag.String("password", "", "plaintext password to hash")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Error("username and password are required")
		os.Exit(2)
	}
	if *nickname == "" {
		*nickname = *username
	}

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

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		log.Error("migrate storage", "error", err)
		os.Exit(1)
	}

	hashed, err := auth.HashPassword(*password)
	if err != nil {
		log.Error("hash password", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	user := storage.User{
		ID:        uuid.NewString(),
		Username:  *username,
		Nickname:  *nickname,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateUser(ctx, &user); err != nil {
		log.Error("create user", "error", err)
		os.Exit(1)
	}

	log.Info("user created", "id", user.ID, "username", user.Username, "nickname", user.Nickname)
}
