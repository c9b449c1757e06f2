// Command upload-completion is the lambda finalizing presigned uploads. It
// accepts S3 object-created notifications directly or wrapped in SQS
// messages (completion source "sqs").
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

	completion := deps.Completion()
	if cfg.CompletionSource == config.CompletionSourceSQS {
		lambda.Start(completion.HandleSQSEvent)
		return
	}
	lambda.Start(completion.HandleS3Event)
}
