// Command presigned-cleanup is the scheduled lambda purging expired
// presigned upload tasks across all tenants.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
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

	lambda.Start(deps.Sweep().HandleScheduled)
}
