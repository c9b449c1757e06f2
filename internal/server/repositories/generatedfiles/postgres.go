// Package generatedfiles stores artifacts produced by file processing.
package generatedfiles

import (
	"context"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, g *models.GeneratedFile) error {
	query := `INSERT INTO docbox_generated_files (id, file_id, type, mime, hash, file_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return dbx.ExecOne(ctx, r.db, query, g.ID, g.FileID, string(g.Type), g.Mime, g.Hash, g.FileKey, g.CreatedAt)
}

// ListByFile returns the artifacts of fileID, oldest first.
func (r *PostgresRepository) ListByFile(ctx context.Context, fileID uuid.UUID) ([]*models.GeneratedFile, error) {
	query := `SELECT id, file_id, type, mime, hash, file_key, created_at FROM docbox_generated_files
		WHERE file_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select generated files: %w", err)
	}
	defer rows.Close()

	result := []*models.GeneratedFile{}
	for rows.Next() {
		var g models.GeneratedFile
		if err := rows.Scan(&g.ID, &g.FileID, &g.Type, &g.Mime, &g.Hash, &g.FileKey, &g.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
