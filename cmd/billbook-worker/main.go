package main

import (
	"context"
	"errors"
	"os"

	"billbook/internal/amqp"
	"billbook/internal/cli"
	"billbook/internal/client"
	"billbook/internal/config"
	"billbook/internal/log"
	gsheet "billbook/internal/sheets/google"
	"billbook/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting billbook-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	mirror, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := mirror.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to prepare bill sheet", "error", err, "sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(mirror)

	var reconciler *worker.Reconciler
	if cfg.ReconcileInterval > 0 {
		api := client.New(cfg.APIBaseURL, cfg.APITimeout)
		reconciler = worker.NewReconciler(api, mirror, worker.ReconcilerConfig{Interval: cfg.ReconcileInterval})
		if err := reconciler.Start(ctx); err != nil {
			logger.Error("Failed to start mirror reconciler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Mirror reconciler disabled")
	}

	err = amqpClient.ConsumeBillEvents(ctx, mirrorWorker.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}

	if reconciler != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		if err := reconciler.Stop(stopCtx); err != nil {
			logger.Warn("Reconciler did not stop cleanly", "error", err)
		}
		stopCancel()
	}

	stats := mirrorWorker.Stats()
	logger.Info("Worker stopped",
		"events_applied", stats.Applied,
		"events_failed", stats.Failed)
}
