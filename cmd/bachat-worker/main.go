package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	appamqp "bachat/internal/amqp"
	"bachat/internal/auth"
	"bachat/internal/cli"
	"bachat/internal/mirror/sheets"
	"bachat/internal/service"
	"bachat/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting bachat-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	table, err := cfg.CalendarTable()
	if err != nil {
		logger.Error("Failed to load calendar table", "error", err)
		os.Exit(1)
	}

	st := cli.InitStore(logger, cfg)
	defer st.Close()

	roles := auth.New(st)
	ledgers := service.NewLedgerService(st, roles, table, nil)

	// Initialize the Sheets mirror (optional)
	var mirror worker.Mirror
	if cfg.SheetsSpreadsheetID != "" {
		client, err := sheets.NewClient(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Sheets mirror", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Sheets mirror initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	} else {
		logger.Info("Sheets mirror disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	reportWorker := worker.NewReportWorker(ledgers, cfg.ReportDir, mirror)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, regenerate everything so the report directory is
	// complete even after missed messages.
	logger.Info("Performing startup report refresh...")
	if err := reportWorker.RefreshAll(ctx, cfg.FiscalYears); err != nil {
		logger.Error("Startup report refresh failed", "error", err)
		// Don't exit - continue with normal operation
	}

	// Consume change messages only when AMQP is configured; otherwise
	// the periodic refresh is the only trigger.
	if cfg.AMQPURL != "" {
		amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeLedgerChanges(ctx, reportWorker.HandleLedgerChange); err != nil {
				if err != context.Canceled {
					logger.Error("Message consumption failed", "error", err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	go reportWorker.RunPeriodicRefresh(ctx, cfg.RefreshInterval, cfg.FiscalYears)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
