// Package folders provides read access to document box folders.
package folders

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindInScope returns folder id if it belongs to scope, or common.ErrorNotFound.
func (r *PostgresRepository) FindInScope(ctx context.Context, scope string, id uuid.UUID) (*models.Folder, error) {
	query := `SELECT id, document_box, name, folder_id FROM docbox_folders
		WHERE document_box = $1 AND id = $2`

	f := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, scope, id).Scan(&f.ID, &f.DocumentBox, &f.Name, &f.FolderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
