package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/susu3304/zapbot/internal/api"
	"github.com/susu3304/zapbot/internal/bot"
	"github.com/susu3304/zapbot/internal/config"
	"github.com/susu3304/zapbot/internal/db"
	"github.com/susu3304/zapbot/internal/identity"
	"github.com/susu3304/zapbot/internal/logging"
	"github.com/susu3304/zapbot/internal/onboarding"
	"github.com/susu3304/zapbot/internal/processor"
	"github.com/susu3304/zapbot/internal/router"
	"github.com/susu3304/zapbot/internal/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// Identity store
	var store identity.Store
	closeStore := func() {}
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, identities are kept in memory and lost on restart")
		store = identity.NewMemoryStore()
	} else {
		store, closeStore, err = db.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open identity store", "error", err)
			os.Exit(1)
		}
	}
	defer closeStore()

	client := processor.New(cfg.Processor.BaseURL,
		processor.WithHTTPClient(&http.Client{Timeout: cfg.Processor.Timeout}),
		processor.WithConnector(cfg.Processor.ConnectorName, cfg.Processor.ConnectorType),
	)

	poll := zap.PollPolicy{
		Interval:    cfg.Zap.PollInterval,
		Timeout:     cfg.Zap.PollTimeout,
		MaxAttempts: cfg.Zap.PollMaxAttempts,
	}
	controller := onboarding.NewController(client, store, logger)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go controller.Run(sweepCtx, time.Minute)

	rt := router.New(
		controller,
		zap.NewDetector(store, zap.Policy{
			Trigger:  cfg.Zap.Trigger,
			Amount:   cfg.Zap.Amount,
			Currency: cfg.Zap.Currency,
		}),
		zap.NewDispatcher(client, poll, logger),
		logger,
		// Leave room for the payment request and both notifications.
		router.WithDispatchTimeout(cfg.Zap.PollTimeout+2*cfg.Processor.Timeout+30*time.Second),
	)

	// Initialize Discord bot
	discordBot, err := bot.New(cfg.DiscordToken, rt, logger)
	if err != nil {
		logger.Error("failed to create discord bot", "error", err)
		os.Exit(1)
	}
	if err := discordBot.Start(); err != nil {
		logger.Error("failed to start discord bot", "error", err)
		os.Exit(1)
	}

	var apiServer *api.API
	if cfg.WebEnabled() {
		apiServer = api.New(cfg, store, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("API server error", "error", err)
			}
		}()
	} else {
		logger.Info("DISCORD_CLIENT_ID/DISCORD_CLIENT_SECRET not set, web API disabled")
	}

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	if err := discordBot.Stop(); err != nil {
		logger.Warn("failed to close discord session", "error", err)
	}
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(ctx); err != nil {
			logger.Warn("failed to stop API server", "error", err)
		}
		cancel()
	}
	rt.Close()
}
