package folders

import (
	"context"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.Folder, error)
}
