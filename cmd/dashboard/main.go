package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/logger"
	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/tradeapi"
	"trade-dashboard-go/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, level, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("backend", cfg.Backend.BaseURL))

	config.OnChange(func(next config.Config, err error) {
		if err != nil {
			log.Warn("Ignoring invalid configuration change", zap.Error(err))
			return
		}
		if err := logger.ApplyLevel(level, next.Logger.Level); err != nil {
			log.Warn("Invalid log level in configuration", zap.String("level", next.Logger.Level), zap.Error(err))
			return
		}
		log.Info("Configuration reloaded", zap.String("log_level", next.Logger.Level))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := tradeapi.NewRestClient(&cfg.Backend, log)
	tradeStore := store.New(client, log, cfg.Store.BalanceInterval)

	gin.SetMode(gin.ReleaseMode)
	server, err := web.NewServer(cfg.Server, tradeStore, log)
	if err != nil {
		log.Fatal("Failed to create web server", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tradeStore.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Dashboard stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Dashboard has been shut down.")
}
