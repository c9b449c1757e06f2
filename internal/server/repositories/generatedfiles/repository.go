package generatedfiles

import (
	"context"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, file *models.GeneratedFile) error
	ListByFile(ctx context.Context, fileID uuid.UUID) ([]*models.GeneratedFile, error)
}
