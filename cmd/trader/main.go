package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/exchange"
	"binance-grid-bot-go/internal/id"
	"binance-grid-bot-go/internal/logger"
	"binance-grid-bot-go/internal/pricefeed"
	"binance-grid-bot-go/internal/store"
	"binance-grid-bot-go/internal/trader"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig(configDir())
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded",
		zap.String("mode", cfg.Trading.Mode),
		zap.String("price_feed", cfg.Trading.PriceFeed),
		zap.Int("grids", len(cfg.Grids)))

	if cfg.Trading.Mode == config.ModeDemoAPI && !cfg.Binance.Testnet {
		log.Info("Demo mode, switching to Binance Testnet")
		cfg.Binance.Testnet = true
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Binance, log)
	if needsExchange(&cfg) {
		if _, err := restClient.GetServerTime(ctx); err != nil {
			log.Fatal("Failed to connect to Binance API", zap.Error(err))
		}
		log.Info("Successfully connected to Binance API.")
	}

	st, err := store.Open(ctx, &cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	session, err := trader.NewSession(id.NewSessionID(), &cfg)
	if err != nil {
		log.Fatal("Invalid grid configuration", zap.Error(err))
	}

	feed, err := pricefeed.FromConfig(ctx, &cfg, restClient, log)
	if err != nil {
		log.Fatal("Failed to create price feed", zap.Error(err))
	}

	var orders exchange.Client
	if cfg.Trading.Mode == config.ModeSimulate {
		orders = exchange.NewPaper(session.LastPrice)
	} else {
		b := exchange.NewBinance(restClient, log)
		if err := b.LoadRules(ctx); err != nil {
			log.Fatal("Failed to load exchange rules", zap.Error(err))
		}
		orders = b
	}

	// Initialize the trading engine and its control API
	engine := trader.NewEngine(log, &cfg, session, feed, orders, st)
	api := trader.NewAPIServer(ctx, engine, cfg.Server.Port, log)
	api.Start()

	if cfg.Trading.Autostart {
		if err := engine.Start(ctx); err != nil {
			log.Fatal("Failed to start engine", zap.Error(err))
		}
	} else {
		log.Info("Autostart disabled, waiting for POST /start")
	}

	<-ctx.Done()
	engine.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}

// needsExchange reports whether the run talks to Binance at all.
func needsExchange(cfg *config.Config) bool {
	if cfg.Trading.Mode != config.ModeSimulate || cfg.Trading.PriceFeed != config.FeedReplay {
		return true
	}
	return cfg.Trading.Replay.Source == "klines"
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "./configs"
}
