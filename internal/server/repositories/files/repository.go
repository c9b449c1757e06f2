package files

import (
	"context"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.File, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.File, error)
}
