package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/database"
	"binance-grid-bot-go/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "./configs"
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Storage.Driver != "sqlite" {
		log.Fatal("The dashboard reads the sqlite store only", zap.String("driver", cfg.Storage.Driver))
	}

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	apiHandler := NewAPIHandler(log, db)

	addr := config.Address(cfg.Server.UIPort)
	log.Info("Starting web server", zap.String("address", addr))

	server := &http.Server{
		Addr:              addr,
		Handler:           apiHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
