package services

import (
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/events"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/search"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
)

// Factories derive tenant handles from the shared AWS and OpenSearch
// clients. A nil Search or Events factory leaves that handle nil, which
// Complete treats as "not configured".
type Factories struct {
	Storage *storage.Factory
	Search  *search.Factory
	Events  *events.Factory
}

// For returns the handles of tenant t served from pool db.
func (f Factories) For(t *models.Tenant, db dbx.DB) TenantResources {
	res := TenantResources{DB: db, Storage: f.Storage.ForTenant(t)}
	if f.Search != nil {
		res.Search = f.Search.ForTenant(t)
	}
	if f.Events != nil {
		res.Events = f.Events.ForTenant(t)
	}
	return res
}
