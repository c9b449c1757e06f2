// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/migrations"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/folders"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/generatedfiles"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/presignedtasks"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/tenants"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes the schema migration hooks.
type PostgresRepositoryManager struct {
	// goose keeps its base FS and dialect in package state.
	migrateMu sync.Mutex
}

// Tenants returns a tenants.Repository bound to the provided DBTX (root pool).
func (m *PostgresRepositoryManager) Tenants(db dbx.DBTX) tenants.Repository {
	return tenants.NewPostgresRepository(db)
}

// Folders returns a folders.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Folders(db dbx.DBTX) folders.Repository {
	return folders.NewPostgresRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// GeneratedFiles returns a generatedfiles.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) GeneratedFiles(db dbx.DBTX) generatedfiles.Repository {
	return generatedfiles.NewPostgresRepository(db)
}

// PresignedTasks returns a presignedtasks.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) PresignedTasks(db dbx.DBTX) presignedtasks.Repository {
	return presignedtasks.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresRepositoryManager) migrate(ctx context.Context, db *sql.DB, dir string) error {
	m.migrateMu.Lock()
	defer m.migrateMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, dir)
}

// RunRootMigrations migrates the root database holding the tenant directory.
func (m *PostgresRepositoryManager) RunRootMigrations(ctx context.Context, db *sql.DB) error {
	return m.migrate(ctx, db, migrations.RootDir)
}

// RunTenantMigrations migrates one tenant database.
func (m *PostgresRepositoryManager) RunTenantMigrations(ctx context.Context, db *sql.DB) error {
	return m.migrate(ctx, db, migrations.TenantDir)
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
