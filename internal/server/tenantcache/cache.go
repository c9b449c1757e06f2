// Package tenantcache is a cache-aside lookup of the tenant directory keyed
// by (env, tenant id).
package tenantcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Cache holds resolved tenants until Flush. Absent tenants are never cached,
// so newly provisioned tenants are visible on the next request.
type Cache struct {
	repomanager repomanager.RepositoryManager

	mu      sync.RWMutex
	tenants map[models.TenantKey]*models.Tenant
}

func New(rm repomanager.RepositoryManager) *Cache {
	return &Cache{
		repomanager: rm,
		tenants:     make(map[models.TenantKey]*models.Tenant),
	}
}

// Resolve returns the tenant (env, id), querying the directory in root on a
// miss. Absence is common.ErrorNotFound; any other directory failure is
// returned wrapped and does not match it.
func (c *Cache) Resolve(ctx context.Context, root dbx.DBTX, env string, id uuid.UUID) (*models.Tenant, error) {
	key := models.TenantKey{Env: env, ID: id}

	c.mu.RLock()
	t, ok := c.tenants[key]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := c.repomanager.Tenants(root).FindByID(ctx, env, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("tenant directory: %w", err)
	}

	c.mu.Lock()
	c.tenants[key] = t
	c.mu.Unlock()
	return t, nil
}

// Flush forgets every cached tenant.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.tenants = make(map[models.TenantKey]*models.Tenant)
	c.mu.Unlock()
}
