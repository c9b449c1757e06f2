// Package presignedtasks stores presigned upload tasks, the shared state
// between the API, the completion handler and the cleanup sweep.
package presignedtasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

const taskColumns = `id, document_box, folder_id, file_key, name, mime, size, status, file_id, error,
	processing_config, parent_id, created_by, created_at, expires_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.PresignedUploadTask, error) {
	t := &models.PresignedUploadTask{}
	var config []byte
	err := row.Scan(&t.ID, &t.DocumentBox, &t.FolderID, &t.FileKey, &t.Name, &t.Mime, &t.Size, &t.Status, &t.FileID, &t.Error,
		&config, &t.ParentID, &t.CreatedBy, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		t.ProcessingConfig = config
	}
	return t, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Create inserts a new Pending task.
func (r *PostgresRepository) Create(ctx context.Context, t *models.PresignedUploadTask) error {
	query := `
		INSERT INTO docbox_presigned_upload_tasks
			(id, document_box, folder_id, file_key, name, mime, size, status, processing_config, parent_id, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'Pending', $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.DocumentBox, t.FolderID, t.FileKey, t.Name, t.Mime, t.Size,
		nullableJSON(t.ProcessingConfig), t.ParentID, t.CreatedBy, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.PresignedUploadTask, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select task: %w", err)
	}
	return t, nil
}

// FindPendingByFileKey returns the Pending task uploading to fileKey.
// Terminal tasks never match, which makes repeated notifications no-ops.
func (r *PostgresRepository) FindPendingByFileKey(ctx context.Context, fileKey string) (*models.PresignedUploadTask, error) {
	query := `SELECT ` + taskColumns + ` FROM docbox_presigned_upload_tasks
		WHERE file_key = $1 AND status = 'Pending'`
	return r.queryOne(ctx, query, fileKey)
}

// FindInScope returns task id within scope in any status.
func (r *PostgresRepository) FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.PresignedUploadTask, error) {
	query := `SELECT ` + taskColumns + ` FROM docbox_presigned_upload_tasks
		WHERE document_box = $1 AND id = $2`
	return r.queryOne(ctx, query, scope, id)
}

func (r *PostgresRepository) transition(ctx context.Context, query string, args ...any) error {
	err := dbx.ExecOne(ctx, r.db, query, args...)
	if errors.Is(err, dbx.ErrNoRowsAffected) {
		return common.ErrNotPending
	}
	return err
}

// MarkCompleted moves task id from Pending to Completed. It returns
// common.ErrNotPending when the task is gone or already terminal.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id, fileID uuid.UUID) error {
	query := `UPDATE docbox_presigned_upload_tasks SET status = 'Completed', file_id = $2
		WHERE id = $1 AND status = 'Pending'`
	return r.transition(ctx, query, id, fileID)
}

// MarkFailed moves task id from Pending to Failed with reason. It returns
// common.ErrNotPending when the task is gone or already terminal.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE docbox_presigned_upload_tasks SET status = 'Failed', error = $2
		WHERE id = $1 AND status = 'Pending'`
	return r.transition(ctx, query, id, reason)
}

// FindExpired returns every task with expires_at before now, in any status.
func (r *PostgresRepository) FindExpired(ctx context.Context, now time.Time) ([]*models.PresignedUploadTask, error) {
	query := `SELECT ` + taskColumns + ` FROM docbox_presigned_upload_tasks
		WHERE expires_at < $1 ORDER BY expires_at`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.PresignedUploadTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes task id and returns the status it had at deletion time.
// A task already removed yields common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) (models.TaskStatus, error) {
	query := `DELETE FROM docbox_presigned_upload_tasks WHERE id = $1 RETURNING status`

	var status models.TaskStatus
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return status, nil
}
