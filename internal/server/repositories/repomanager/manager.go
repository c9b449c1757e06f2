package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/folders"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/generatedfiles"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/presignedtasks"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/tenants"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against a pool or inside a transaction.
type RepositoryManager interface {
	RunRootMigrations(ctx context.Context, db *sql.DB) error
	RunTenantMigrations(ctx context.Context, db *sql.DB) error
	Tenants(db dbx.DBTX) tenants.Repository
	Folders(db dbx.DBTX) folders.Repository
	Files(db dbx.DBTX) files.Repository
	GeneratedFiles(db dbx.DBTX) generatedfiles.Repository
	PresignedTasks(db dbx.DBTX) presignedtasks.Repository
}
