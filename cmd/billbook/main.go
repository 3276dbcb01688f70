package main

import (
	"context"
	"os"

	"billbook/internal/backend"
	"billbook/internal/cli"
	"billbook/internal/config"
	apphttp "billbook/internal/http"
	"billbook/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp, (*config.Config).Validate)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Failed to convert backend config", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, result.Service, logger, apphttp.Options{
		CORSOrigin:        cfg.CORSOrigin,
		RequestsPerMinute: cfg.RateLimit,
		TrustedProxies:    cfg.TrustedCIDR,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting billbook API", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", cfg.AMQPURL != "")
	if err := cli.Serve(ctx, logger, srv); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		result.Cleanup()
		os.Exit(1)
	}
}
