package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.MustLoad()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "bootstrap failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}

}
