// Package migrations embeds the goose SQL migrations for the root database
// (tenant directory) and for every tenant database.
package migrations

import "embed"

// Migrations holds both migration sets; pass RootDir or TenantDir to goose.
//
//go:embed root/*.sql tenant/*.sql
var Migrations embed.FS

const (
	RootDir   = "root"
	TenantDir = "tenant"
)
