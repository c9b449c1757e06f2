package background

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"go.uber.org/multierr"
)

// Migrator brings the root database and every tenant database to the latest
// schema and makes sure each tenant's search index exists.
type Migrator struct {
	pools       poolSource
	repos       repomanager.RepositoryManager
	ensureIndex func(ctx context.Context, t *models.Tenant) error
	log         logging.Logger
}

func NewMigrator(pools poolSource, repos repomanager.RepositoryManager,
	ensureIndex func(ctx context.Context, t *models.Tenant) error, log logging.Logger) *Migrator {
	return &Migrator{pools: pools, repos: repos, ensureIndex: ensureIndex, log: log}
}

// Migrator builds a Migrator over d.
func (d *Dependencies) Migrator() *Migrator {
	return NewMigrator(d.Pools, d.Repos, func(ctx context.Context, t *models.Tenant) error {
		return d.Factories.Search.ForTenant(t).EnsureIndex(ctx)
	}, d.Log)
}

// Run migrates root first; a root failure stops everything. Tenant failures
// are collected and the remaining tenants still migrate.
func (m *Migrator) Run(ctx context.Context) error {
	root, err := m.pools.RootPool(ctx)
	if err != nil {
		return fmt.Errorf("root database: %w", err)
	}
	if err := m.repos.RunRootMigrations(ctx, root); err != nil {
		return fmt.Errorf("root migrations: %w", err)
	}

	tenants, err := m.repos.Tenants(root).List(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	var errs error
	for _, t := range tenants {
		if err := m.tenant(ctx, t); err != nil {
			m.log.Error(ctx, "tenant migration failed", "tenant_id", t.ID, "tenant_env", t.Env, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("tenant %s/%s: %w", t.Env, t.ID, err))
			continue
		}
		m.log.Info(ctx, "tenant migrated", "tenant_id", t.ID, "tenant_env", t.Env)
	}
	return errs
}

func (m *Migrator) tenant(ctx context.Context, t *models.Tenant) error {
	db, err := m.pools.TenantPool(ctx, t)
	if err != nil {
		return err
	}
	if err := m.repos.RunTenantMigrations(ctx, db); err != nil {
		return err
	}
	if m.ensureIndex != nil {
		return m.ensureIndex(ctx, t)
	}
	return nil
}
