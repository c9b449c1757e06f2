// Package server initializes and runs the docbox HTTP API process.
// It wires the shared clients and caches, optionally migrates every
// database at start, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/background"
	"github.com/dmitrijs2005/docbox/internal/server/config"
	"github.com/dmitrijs2005/docbox/internal/server/httpapi"
	"github.com/dmitrijs2005/docbox/internal/server/tenantcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	deps    *background.Dependencies
	tenants *tenantcache.Cache
	handler *httpapi.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(c.LogLevel)

	deps, err := background.NewDependencies(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("dependencies init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(deps.Metrics.PrometheusCollectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tenants := tenantcache.New(deps.Repos)

	handler := httpapi.NewHandler(httpapi.Options{
		APIKey:    c.APIKey,
		Pools:     deps.Pools,
		Tenants:   tenants,
		Resources: deps.Factories,
		Presigned: deps.Presigned,
		Metrics:   deps.Metrics,
		Gatherer:  reg,
		Log:       logger,
	})

	return &App{config: c, logger: logger, deps: deps, tenants: tenants, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.handler)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.config.RunMigrations {
		if err := app.deps.Migrator().Run(ctx); err != nil {
			// a tenant that failed to migrate fails its own requests only
			app.logger.Error(ctx, "migrations incomplete", "error", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.deps.Close(); err != nil {
		app.logger.Error(context.Background(), "closing database pools", "error", err)
	}
}
