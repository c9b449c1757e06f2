package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type tenantCtxKey struct{}

type tenantContext struct {
	tenant *models.Tenant
	res    services.TenantResources
}

func tenantFrom(ctx context.Context) *tenantContext {
	tc, _ := ctx.Value(tenantCtxKey{}).(*tenantContext)
	return tc
}

// logger returns the request scoped logger set up by mwLogger and mwTenant.
func (h *Handler) logger(r *http.Request) logging.Logger {
	return logging.FromContext(r.Context(), h.log)
}

func (h *Handler) mwLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := h.log.With("request_id", middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(logging.NewContext(ctx, l)))
	})
}

func (h *Handler) mwMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		h.metrics.RequestsLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (h *Handler) mwAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey != "" {
			got := r.Header.Get(headerAPIKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.apiKey)) != 1 {
				h.respondReason(w, r, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// mwTenant resolves the tenant named by the request headers and attaches
// its database pool and resource handles to the request context.
func (h *Handler) mwTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rawID := r.Header.Get(headerTenantID)
		if rawID == "" {
			h.writeError(w, r, common.Validation("%s", common.ErrMissingTenantID))
			return
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			h.writeError(w, r, common.Validation("%s", common.ErrInvalidTenantID))
			return
		}
		env := r.Header.Get(headerTenantEnv)
		if env == "" {
			h.writeError(w, r, common.Validation("%s", common.ErrMissingTenantEnv))
			return
		}

		root, err := h.pools.RootPool(ctx)
		if err != nil {
			h.writeError(w, r, common.Infrastructure(err))
			return
		}

		tenant, err := h.tenants.Resolve(ctx, root, env, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				h.writeError(w, r, common.NotFound("tenant not found"))
				return
			}
			h.writeError(w, r, common.Infrastructure(err))
			return
		}

		db, err := h.pools.TenantPool(ctx, tenant)
		if err != nil {
			h.writeError(w, r, common.Infrastructure(err))
			return
		}

		tc := &tenantContext{tenant: tenant, res: h.resources.For(tenant, db)}
		ctx = context.WithValue(ctx, tenantCtxKey{}, tc)
		ctx = logging.NewContext(ctx, h.logger(r).With("tenant_id", tenant.ID, "tenant_env", tenant.Env))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
