package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/docbox/internal/flagx"
)

var handledFlags = []string{"-a", "-k", "-l", "-g", "-e", "-H", "-P", "-d", "-s", "-n", "-o", "-t", "-m", "-w", "-migrate"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-k string   API key required in x-docbox-api-key
//	-l string   log level
//	-g string   AWS region
//	-e string   AWS endpoint override (LocalStack, MinIO)
//	-H string   database host
//	-P int      database port
//	-d string   root database name
//	-s string   secret holding the root database credentials
//	-n int      max connections per pool
//	-o string   OpenSearch URL
//	-t int      presigned upload expiry, minutes
//	-m int      max upload size, bytes
//	-w int      sweep concurrency
//	-migrate    run migrations at start (use -migrate=true)
//
// Only these flags are considered (see flagx.FilterArgs) so other components
// can parse their own.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], handledFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.APIKey, "k", config.APIKey, "API key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSEndpoint, "e", config.AWSEndpoint, "AWS endpoint override")
	fs.StringVar(&config.DatabaseHost, "H", config.DatabaseHost, "database host")
	fs.IntVar(&config.DatabasePort, "P", config.DatabasePort, "database port")
	fs.StringVar(&config.DatabaseRootName, "d", config.DatabaseRootName, "root database name")
	fs.StringVar(&config.DatabaseRootSecretName, "s", config.DatabaseRootSecretName, "root database secret name")
	fs.IntVar(&config.DatabaseMaxConnections, "n", config.DatabaseMaxConnections, "max connections per pool")
	fs.StringVar(&config.SearchURL, "o", config.SearchURL, "OpenSearch URL")
	expiry := fs.Int("t", int(config.PresignedUploadExpiry.Minutes()), "presigned upload expiry (in minutes)")
	fs.Int64Var(&config.MaxFileSizeBytes, "m", config.MaxFileSizeBytes, "max file size in bytes")
	fs.IntVar(&config.SweepConcurrency, "w", config.SweepConcurrency, "tenants purged in parallel")
	fs.BoolVar(&config.RunMigrations, "migrate", config.RunMigrations, "run migrations at start")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.PresignedUploadExpiry = time.Duration(*expiry) * time.Minute
		}
	})
}
