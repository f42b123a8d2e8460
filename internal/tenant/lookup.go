package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/storegate/internal/cache"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/store/core"
)

// Lookup lee tenants por slug con cache write-through y colapso de lookups
// concurrentes. La existencia de un tenant cambia rara vez, así que un TTL
// corto alcanza y el datastore sólo ve un miss por slug por ventana.
type Lookup struct {
	repo  core.TenantRepository
	cache cache.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewLookup construye el Lookup. cache puede ser nil (sin cache, útil en
// tests); ttl <= 0 usa 60s.
func NewLookup(repo core.TenantRepository, c cache.Client, ttl time.Duration) *Lookup {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Lookup{repo: repo, cache: c, ttl: ttl}
}

// cachedTenant es la forma serializada en cache. Se cachean también los
// misses (ID vacío) para no martillar el datastore con slugs inventados.
type cachedTenant struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	BusinessName string `json:"business_name"`
	IsActive     bool   `json:"is_active"`
}

// GetBySlug retorna el tenant activo con ese slug. Tenant inexistente o
// inactivo => core.ErrNotFound; el caller decide el código de error visible.
func (l *Lookup) GetBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	if !ValidSlug(slug) {
		return nil, core.ErrNotFound
	}

	key := "tenant:slug:" + slug
	if l.cache != nil {
		if raw, err := l.cache.Get(ctx, key); err == nil {
			var ct cachedTenant
			if err := json.Unmarshal([]byte(raw), &ct); err == nil {
				if ct.ID == "" || !ct.IsActive {
					return nil, core.ErrNotFound
				}
				return &core.Tenant{
					ID:           ct.ID,
					Slug:         ct.Slug,
					BusinessName: ct.BusinessName,
					IsActive:     ct.IsActive,
				}, nil
			}
		} else if !cache.IsNotFound(err) {
			// Cache caído no frena el request; se degrada al datastore.
			logger.From(ctx).Warn("tenant cache get failed",
				logger.TenantSlug(slug), logger.Err(err))
		}
	}

	v, err, _ := l.group.Do(slug, func() (any, error) {
		t, err := l.repo.GetBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				l.put(ctx, key, cachedTenant{})
			}
			return nil, err
		}
		l.put(ctx, key, cachedTenant{
			ID:           t.ID,
			Slug:         t.Slug,
			BusinessName: t.BusinessName,
			IsActive:     t.IsActive,
		})
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	t := v.(*core.Tenant)
	if !t.IsActive {
		return nil, core.ErrNotFound
	}
	return t, nil
}

// Invalidate borra la entrada de cache de un slug (cambios administrativos).
func (l *Lookup) Invalidate(ctx context.Context, slug string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, "tenant:slug:"+slug); err != nil {
		logger.From(ctx).Warn("tenant cache invalidate failed",
			logger.TenantSlug(slug), logger.Err(err))
	}
}

func (l *Lookup) put(ctx context.Context, key string, ct cachedTenant) {
	if l.cache == nil {
		return
	}
	b, _ := json.Marshal(ct)
	if err := l.cache.Set(ctx, key, string(b), l.ttl); err != nil {
		logger.From(ctx).Warn("tenant cache set failed", logger.Err(err))
	}
}
