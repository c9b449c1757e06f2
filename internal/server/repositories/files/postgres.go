// Package files stores document metadata. File content lives in the
// tenant bucket under FileKey.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts file. Exactly one row must be affected.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO docbox_files (id, name, mime, folder_id, hash, size, file_key, parent_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	return dbx.ExecOne(ctx, r.db, query,
		file.ID, file.Name, file.Mime, file.FolderID, file.Hash, file.Size, file.FileKey, file.ParentID, file.CreatedBy, file.CreatedAt)
}

const fileColumns = `f.id, f.name, f.mime, f.folder_id, f.hash, f.size, f.file_key, f.parent_id, f.created_by, f.created_at`

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.Name, &f.Mime, &f.FolderID, &f.Hash, &f.Size, &f.FileKey, &f.ParentID, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

// FindInScope returns file id if its folder belongs to scope.
func (r *PostgresRepository) FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM docbox_files f
		INNER JOIN docbox_folders fo ON fo.id = f.folder_id
		WHERE fo.document_box = $1 AND f.id = $2`
	return scanFile(r.db.QueryRowContext(ctx, query, scope, id))
}

// FindByID returns file id regardless of scope.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM docbox_files f WHERE f.id = $1`
	return scanFile(r.db.QueryRowContext(ctx, query, id))
}
