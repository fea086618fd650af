package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"fxHedgeBot/config"
	"fxHedgeBot/internal/adapters/broker"
	"fxHedgeBot/internal/adapters/indicatorfeed"
	"fxHedgeBot/internal/adapters/logger"
	"fxHedgeBot/internal/adapters/sqlite"
	"fxHedgeBot/internal/app"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Ledger (Database Adapter)
	ledger, err := sqlite.NewLedger(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize order ledger")
		log.Fatalf("FATAL: Failed to initialize order ledger: %v", err)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing order ledger")
		}
	}()
	appLogger.Info(context.Background(), "Order ledger initialized")

	// 4. Initialize Broker Client
	brokerClient, err := broker.NewClient(broker.Config{
		Token:     cfg.BrokerToken,
		AccountID: cfg.BrokerAccountID,
		Practice:  cfg.IsPractice,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize broker client")
		log.Fatalf("FATAL: Failed to initialize broker client: %v", err)
	}
	appLogger.Info(context.Background(), "Broker client initialized", map[string]interface{}{"practice": cfg.IsPractice})

	// 5. Initialize Indicator Feed
	feed, err := indicatorfeed.New(indicatorfeed.Config{}, brokerClient, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize indicator feed")
		log.Fatalf("FATAL: Failed to initialize indicator feed: %v", err)
	}

	// 6. Initialize Application Service
	service, err := app.NewService(cfg, appLogger, app.Deps{
		Market:     brokerClient,
		Account:    brokerClient,
		Orders:     brokerClient,
		Ledger:     ledger,
		Governance: ledger,
		Indicators: feed,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize live execution service")
		log.Fatalf("FATAL: Failed to initialize live execution service: %v", err)
	}
	appLogger.Info(context.Background(), "Live execution service initialized")

	// 7. Start the Service
	if err := service.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Live execution service exited with error")
		log.Fatalf("FATAL: Live execution service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
