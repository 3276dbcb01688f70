package main

import (
	"os"

	"billbook/internal/cli"
	"billbook/internal/client"
	"billbook/internal/config"
	"billbook/internal/log"
	"billbook/internal/web"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWeb, (*config.Config).Validate)

	api := client.New(cfg.APIBaseURL, cfg.APITimeout)

	srv, err := web.NewServer(":"+cfg.WebPort, api, logger, web.Options{
		RequestsPerMinute: cfg.RateLimit,
		TrustedProxies:    cfg.TrustedCIDR,
	})
	if err != nil {
		logger.Error("Failed to create web server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting billbook web", "port", cfg.WebPort, "api", cfg.APIBaseURL)
	if err := cli.Serve(ctx, logger, srv); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.WebPort)
		os.Exit(1)
	}
}
