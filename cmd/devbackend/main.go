package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/devbackend"
	"trade-dashboard-go/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := devbackend.NewDatabase(cfg.DevBackend.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.", zap.String("dsn", cfg.DevBackend.DSN))

	if cfg.DevBackend.Seed {
		if err := devbackend.Seed(db, time.Now()); err != nil {
			log.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	if err := devbackend.NewServer(db, log).Start(ctx, cfg.DevBackend.Port); err != nil {
		log.Fatal("Backend stand-in failed", zap.Error(err))
	}
	log.Info("Backend stand-in has been shut down.")
}
