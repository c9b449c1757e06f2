// Command migrate applies the root and tenant schema migrations and creates
// missing tenant search indexes.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/background"
	"github.com/dmitrijs2005/docbox/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSON(cfg.LogLevel)

	deps, err := background.NewDependencies(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	err = deps.Migrator().Run(ctx)
	if cerr := deps.Close(); cerr != nil {
		logger.Error(ctx, "closing database pools", "error", cerr)
	}
	if err != nil {
		logger.Error(ctx, "migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "migrations applied")
}
