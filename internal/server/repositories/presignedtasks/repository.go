package presignedtasks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

// Repository persists presigned upload tasks. Every status change is
// conditional on the row still being Pending.
type Repository interface {
	Create(ctx context.Context, task *models.PresignedUploadTask) error
	FindPendingByFileKey(ctx context.Context, fileKey string) (*models.PresignedUploadTask, error)
	FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.PresignedUploadTask, error)
	MarkCompleted(ctx context.Context, id, fileID uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	FindExpired(ctx context.Context, now time.Time) ([]*models.PresignedUploadTask, error)
	Delete(ctx context.Context, id uuid.UUID) (models.TaskStatus, error)
}
