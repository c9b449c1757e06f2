package tenants

import (
	"context"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

// Repository reads the tenant directory held in the root database.
type Repository interface {
	FindByID(ctx context.Context, env string, id uuid.UUID) (*models.Tenant, error)
	FindByBucket(ctx context.Context, bucket string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}
