// Package tenants implements the tenant directory over the root database.
package tenants

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

const tenantColumns = `id, name, env, db_name, db_secret_name, s3_name, os_index_name, event_queue_url`

// PostgresRepository implements Repository over a dbx.DBTX.
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

func scanTenant(row scanner) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Env, &t.DBName, &t.DBSecretName, &t.S3Name, &t.OSIndexName, &t.EventQueueURL)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID returns the tenant with identity (env, id) or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, env string, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM docbox_tenants WHERE env = $1 AND id = $2`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, env, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// FindByBucket returns the tenant owning the storage bucket or
// common.ErrorNotFound.
func (r *PostgresRepository) FindByBucket(ctx context.Context, bucket string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM docbox_tenants WHERE s3_name = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, bucket))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// List returns every tenant across environments.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM docbox_tenants ORDER BY env, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select tenants: %w", err)
	}
	defer rows.Close()

	var result []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
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
