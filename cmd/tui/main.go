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
	"trade-dashboard-go/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to a file.
	logCfg := cfg.Logger
	logCfg.Stderr = false
	if logCfg.File == "" {
		logCfg.File = "trade-dashboard-tui.log"
	}
	log, _, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := tradeapi.NewRestClient(&cfg.Backend, log)
	tradeStore := store.New(client, log, cfg.Store.BalanceInterval)
	changes, unsubscribe := tradeStore.Subscribe()
	defer unsubscribe()

	storeDone := make(chan struct{})
	go func() {
		defer close(storeDone)
		tradeStore.Run(ctx)
	}()

	program := tea.NewProgram(tui.New(ctx, tradeStore, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Error("Terminal UI failed", zap.Error(err))
		stop()
		<-storeDone
		os.Exit(1)
	}

	stop()
	<-storeDone
	log.Info("Terminal UI has been shut down.")
}
