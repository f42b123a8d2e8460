// Package health expone los endpoints de liveness y readiness.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/storegate/internal/cache"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/store/core"
)

// Controller responde healthz/readyz.
type Controller struct {
	store core.Store
	cache cache.Client
}

// NewController crea el controller de health.
func NewController(store core.Store, c cache.Client) *Controller {
	return &Controller{store: store, cache: c}
}

// Healthz maneja GET /healthz. Liveness: el proceso responde.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz. Readiness: datastore y cache alcanzables.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{"datastore": "ok", "cache": "ok"}
	status := http.StatusOK

	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("datastore ping failed", logger.Err(err))
		checks["datastore"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			logger.From(ctx).Warn("cache ping failed", logger.Err(err))
			checks["cache"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, checks)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
