package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/config"
	"github.com/BuzzLyutic/tasklist-api/internal/database"
	"github.com/BuzzLyutic/tasklist-api/internal/logging"
	"github.com/BuzzLyutic/tasklist-api/migrations"
)

func main() {
	down := flag.Bool("down", false, "drop the schema instead of creating it")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if *down {
		err = migrations.Down(ctx, pool)
	} else {
		err = migrations.Up(ctx, pool)
	}
	if err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migration completed successfully", zap.Bool("down", *down))
}
