// Package httpapi is the HTTP surface of docbox: presigned upload creation
// and status, signed downloads and the admin cache controls.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/metrics"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/services"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	headerTenantID  = "x-tenant-id"
	headerTenantEnv = "x-tenant-env"
	headerAPIKey    = "x-docbox-api-key"
)

// PoolCache is satisfied by *dbpool.Cache.
type PoolCache interface {
	RootPool(ctx context.Context) (*sql.DB, error)
	TenantPool(ctx context.Context, t *models.Tenant) (*sql.DB, error)
	Flush()
}

// TenantResolver is satisfied by *tenantcache.Cache.
type TenantResolver interface {
	Resolve(ctx context.Context, root dbx.DBTX, env string, id uuid.UUID) (*models.Tenant, error)
	Flush()
}

type ResourceFactory interface {
	For(t *models.Tenant, db dbx.DB) services.TenantResources
}

// Presigned is satisfied by *services.PresignedService.
type Presigned interface {
	Initiate(ctx context.Context, db dbx.DBTX, st storage.Storage, req services.InitiateRequest) (*services.InitiateResult, error)
	Status(ctx context.Context, db dbx.DBTX, scope string, taskID uuid.UUID) (*services.StatusResult, error)
	PresignDownload(ctx context.Context, db dbx.DBTX, st storage.Storage, scope string, fileID uuid.UUID, expiry time.Duration) (*storage.PresignedRequest, error)
	PurgeExpired(ctx context.Context, db dbx.DBTX, st storage.Storage, now time.Time) (int, error)
}

// Options wires a Handler. APIKey, when set, is required on every route
// except /health and /metrics.
type Options struct {
	APIKey    string
	Pools     PoolCache
	Tenants   TenantResolver
	Resources ResourceFactory
	Presigned Presigned
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Log       logging.Logger
}

type Handler struct {
	chi.Router

	apiKey    string
	pools     PoolCache
	tenants   TenantResolver
	resources ResourceFactory
	presigned Presigned
	metrics   *metrics.Metrics
	log       logging.Logger
	now       func() time.Time
}

func NewHandler(o Options) *Handler {
	h := &Handler{
		apiKey:    o.APIKey,
		pools:     o.Pools,
		tenants:   o.Tenants,
		resources: o.Resources,
		presigned: o.Presigned,
		metrics:   o.Metrics,
		log:       o.Log,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		h.mwLogger,
		h.mwMetrics,
	)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(h.mwAPIKey)

		r.Post("/admin/flush-db-cache", h.handleFlushDBCache)
		r.Post("/admin/flush-tenant-cache", h.handleFlushTenantCache)

		r.Group(func(r chi.Router) {
			r.Use(h.mwTenant)

			r.Post("/admin/purge-expired-presigned-tasks", h.handlePurgeExpired)

			r.Route("/box/{scope}/file", func(r chi.Router) {
				r.Post("/presigned", h.handleCreatePresigned)
				r.Get("/presigned/{task_id}", h.handleGetPresigned)
				r.Post("/{file_id}/raw-presigned", h.handleRawPresigned)
			})
		})
	})

	h.Router = r
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleFlushDBCache(w http.ResponseWriter, r *http.Request) {
	h.pools.Flush()
	h.logger(r).Info(r.Context(), "database pool cache flushed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFlushTenantCache(w http.ResponseWriter, r *http.Request) {
	h.tenants.Flush()
	h.logger(r).Info(r.Context(), "tenant cache flushed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePurgeExpired(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc := tenantFrom(ctx)

	n, err := h.presigned.PurgeExpired(ctx, tc.res.DB, tc.res.Storage, h.now())
	h.metrics.TasksPurged.Add(float64(n))
	switch {
	case errors.Is(err, services.ErrPurgeIncomplete):
		h.logger(r).Warn(ctx, "expired presigned task purge incomplete", "count", n, "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		h.writeError(w, r, err)
		return
	}
	h.logger(r).Info(ctx, "expired presigned tasks purged", "count", n)
	w.WriteHeader(http.StatusNoContent)
}
