// Package models defines server-side data models persisted in the root and
// tenant databases.
package models

import "github.com/google/uuid"

// Tenant is a provisioned customer environment. Tenants are created by
// provisioning outside this service and are read-only here.
type Tenant struct {
	ID   uuid.UUID
	Name string
	// Env partitions tenants (e.g. "Development", "Production"); (Env, ID)
	// is the tenant identity.
	Env string

	// DBName is the tenant database on the shared server.
	DBName string
	// DBSecretName references the credentials in the secret source.
	DBSecretName string
	// S3Name is the tenant's storage bucket.
	S3Name string
	// OSIndexName is the tenant's search index.
	OSIndexName string
	// EventQueueURL is the optional SQS queue receiving tenant events.
	EventQueueURL *string
}

// TenantKey identifies a tenant across caches.
type TenantKey struct {
	Env string
	ID  uuid.UUID
}

// Key returns the cache identity of t.
func (t *Tenant) Key() TenantKey {
	return TenantKey{Env: t.Env, ID: t.ID}
}
