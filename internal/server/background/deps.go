// Package background hosts the event driven surfaces of docbox: the upload
// completion handler fed by storage notifications and the scheduled sweep of
// expired presigned tasks. Both log failures and never return them.
package background

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/awsx"
	sc "github.com/dmitrijs2005/docbox/internal/server/config"
	"github.com/dmitrijs2005/docbox/internal/server/dbpool"
	"github.com/dmitrijs2005/docbox/internal/server/events"
	"github.com/dmitrijs2005/docbox/internal/server/metrics"
	"github.com/dmitrijs2005/docbox/internal/server/processing"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docbox/internal/server/search"
	"github.com/dmitrijs2005/docbox/internal/server/secrets"
	"github.com/dmitrijs2005/docbox/internal/server/services"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
)

// Dependencies are the process wide clients and caches. They are built once
// per process (or lambda container) and shared by every invocation.
type Dependencies struct {
	Config    *sc.Config
	Pools     *dbpool.Cache
	Repos     repomanager.RepositoryManager
	Factories services.Factories
	Presigned *services.PresignedService
	Metrics   *metrics.Metrics
	Log       logging.Logger
}

func NewDependencies(ctx context.Context, cfg *sc.Config, log logging.Logger) (*Dependencies, error) {
	awsCfg, err := awsx.LoadConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	src, err := secrets.New(cfg, awsx.NewSecretsManager(awsCfg, cfg))
	if err != nil {
		return nil, err
	}

	osClient, err := search.NewClient(cfg.SearchURL, cfg.SearchUsername, cfg.SearchPassword)
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}

	s3Client, presign := awsx.NewS3(awsCfg, cfg)
	repos := repomanager.NewPostgresRepositoryManager()

	pools := dbpool.New(dbpool.Config{
		Host:           cfg.DatabaseHost,
		Port:           cfg.DatabasePort,
		RootName:       cfg.DatabaseRootName,
		RootSecretName: cfg.DatabaseRootSecretName,
		MaxConnections: cfg.DatabaseMaxConnections,
		RetireGrace:    cfg.DatabasePoolRetireGrace,
	}, src, log)

	return &Dependencies{
		Config: cfg,
		Pools:  pools,
		Repos:  repos,
		Factories: services.Factories{
			Storage: storage.NewFactory(s3Client, presign),
			Search:  search.NewFactory(osClient),
			Events:  events.NewFactory(awsx.NewSQS(awsCfg, cfg)),
		},
		Presigned: services.NewPresignedService(repos, processing.Default{}, cfg, log),
		Metrics:   metrics.New(),
		Log:       log,
	}, nil
}

// Completion builds the completion handler over d.
func (d *Dependencies) Completion() *Completion {
	return NewCompletion(d.Pools, d.Repos, d.Factories, d.Presigned, d.Metrics, d.Log, d.Config.SweepConcurrency)
}

// Sweep builds the expired task sweep over d.
func (d *Dependencies) Sweep() *Sweep {
	return NewSweep(d.Pools, d.Repos, d.Factories, d.Presigned, d.Metrics, d.Log, d.Config.SweepConcurrency)
}

func (d *Dependencies) Close() error {
	return d.Pools.Close()
}
